package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Payload cache commands",
	Long: `Commands for the cache of unlocker libraries that installs link from.

Clearing the cache is safe with the copy and hardlink methods. With the
symlink method, installed unlockers point into the cache and will be
reported as foreign files until reinstalled.`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached payloads",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	size, err := service.Cache().Size()
	if err != nil {
		return fmt.Errorf("measuring cache: %w", err)
	}
	if err := service.Cache().Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Freed %s.\n", humanize.Bytes(uint64(size)))
	return nil
}
