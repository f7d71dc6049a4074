package cli

import (
	"strings"

	"github.com/ohmyjons/simple-elt/pkg/elt"
	"github.com/spf13/cobra"
)

var (
	storageBackends   = []string{elt.StorageGCS, elt.StorageS3, elt.StorageFile}
	warehouseBackends = []string{elt.WarehouseBigQuery, elt.WarehouseDuckDB}
)

// completeFrom returns a completion function offering the values that start
// with what has been typed so far.
func completeFrom(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var matches []string
		for _, v := range values {
			if strings.HasPrefix(v, toComplete) {
				matches = append(matches, v)
			}
		}
		return matches, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeFiles restricts completion to files with one of the extensions.
func completeFiles(extensions ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return extensions, cobra.ShellCompDirectiveFilterFileExt
	}
}
