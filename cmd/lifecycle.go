package cmd

import (
	"github.com/huangsam/precache/core"
	"github.com/huangsam/precache/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// installCmd pre-caches the asset manifest into the bucket of the configured version.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download every manifest asset into the current version's bucket.",
	Long: `Fetch each asset of the manifest from the origin and store the responses
in the bucket named by the cache version.

Install is all-or-nothing: if any asset fails to download or answers with a
non-2xx status, nothing is written and the command fails. Installing the same
version again refreshes the stored responses.

Examples:
  # Install the default manifest as version v1
  precache install --origin https://app.example.com

  # Install a custom manifest as version v2
  precache install --origin https://app.example.com --cache-version v2 \
    --assets /,/index.html,/static/js/bundle.js`,
	PreRunE: originSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteInstall(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot install assets", err)
		}
	},
}

// activateCmd removes buckets left behind by other versions.
var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Delete every bucket not named by the current version.",
	Long: `Remove the buckets of all other cache versions so only the current version
stays on disk. Deletions run concurrently.

Examples:
  # Keep only v2
  precache activate --cache-version v2`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteActivate(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot activate version", err)
		}
	},
}

// updateCmd runs install then activate.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Install the current version, then activate it.",
	Long: `Run install followed by activate. Old buckets are only removed once the new
version installed successfully, so a failed install leaves the previous
version in place.

Examples:
  # Roll the offline cache forward to v3
  precache update --origin https://app.example.com --cache-version v3`,
	PreRunE: originSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteUpdate(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot update cache", err)
		}
	},
}

// fetchCmd answers one request cache-first.
var fetchCmd = &cobra.Command{
	Use:   "fetch <url-or-path>",
	Short: "Answer one request from the cache, falling back to the network.",
	Long: `Look up the request in every bucket and return the stored response when one
exists. On a miss the request goes to the network and the response is
returned as is, without being stored.

Paths resolve against the origin; absolute URLs are used unchanged.

Examples:
  # See whether the index page is served offline
  precache fetch / --origin https://app.example.com

  # Save a cached script to disk
  precache fetch /static/js/bundle.js --origin https://app.example.com --body bundle.js`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		method := viper.GetString("method")
		bodyFile := viper.GetString("body")
		if err := core.ExecuteFetch(rootCtx, cfg, cacheManager, method, args[0], bodyFile); err != nil {
			contract.LogFatal("Cannot fetch request", err)
		}
	},
}
