// main is the entry point for the precache CLI.
package main

import (
	"github.com/huangsam/precache/cmd"
	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)
	err := cmd.Execute()
	iocache.CloseStores()
	if err != nil {
		contract.LogFatal("Error starting CLI", err)
	}
}
