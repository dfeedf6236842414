// Copyright 2022 RelationalAI, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/spf13/cobra"

	"marrow/internal/config"
)

func addCommands(root *cobra.Command) {
	// Indexes
	cmd := &cobra.Command{
		Use:   "add-index file",
		Short: "Add an index column ordering the batch by the given keys",
		Args:  cobra.ExactArgs(1),
		Run:   addIndex}
	cmd.Flags().StringSlice("on", nil, "key columns, most significant first (required)")
	cmd.MarkFlagRequired("on")
	cmd.Flags().StringP("output", "o", "", "output file (.arrow, .arrows or .csv)")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "make-index file",
		Short: "Show the permutation ordering the batch by the given keys",
		Args:  cobra.ExactArgs(1),
		Run:   makeIndex}
	cmd.Flags().StringSlice("on", nil, "key columns, most significant first (required)")
	cmd.MarkFlagRequired("on")
	cmd.Flags().StringP("output", "o", "", "output file (.arrow, .arrows or .csv)")
	root.AddCommand(cmd)

	// Sort & merge
	cmd = &cobra.Command{
		Use:   "sort file",
		Short: "Sort a batch by the given keys",
		Args:  cobra.ExactArgs(1),
		Run:   sortBatch}
	cmd.Flags().StringSlice("on", nil, "key columns, most significant first (required)")
	cmd.MarkFlagRequired("on")
	cmd.Flags().StringP("output", "o", "", "output file (.arrow, .arrows or .csv)")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "merge left-file right-file",
		Short: "Merge two batches on the given keys",
		Args:  cobra.ExactArgs(2),
		Run:   mergeBatches}
	cmd.Flags().StringSlice("on", nil, "key columns, most significant first (required)")
	cmd.MarkFlagRequired("on")
	cmd.Flags().String("how", "inner", "join kind, 'inner', 'left' or 'outer'")
	cmd.Flags().String("suffix", "", "suffix for non-key right column names")
	cmd.Flags().StringP("output", "o", "", "output file (.arrow, .arrows or .csv)")
	root.AddCommand(cmd)

	// Misc
	cmd = &cobra.Command{
		Use:   "show file",
		Short: "Show the contents of a batch file",
		Args:  cobra.ExactArgs(1),
		Run:   showBatch}
	root.AddCommand(cmd)
}

func newRootCommand() *cobra.Command {
	var root = &cobra.Command{Use: "marrow"}
	root.PersistentFlags().String("config", config.DefaultConfigFile, "config file")
	root.PersistentFlags().String("profile", config.DefaultConfigProfile, "config profile")
	root.PersistentFlags().BoolP("quiet", "q", false, "silence status output")
	root.PersistentFlags().String("format", "pretty", "format results, 'pretty', 'json' or 'csv'")
	root.PersistentFlags().String("compression", "none", "arrow output compression, 'none', 'lz4' or 'zstd'")
	root.PersistentFlags().Int64("memory-limit", 0, "maximum bytes of arrow memory, 0 for no limit")
	root.PersistentFlags().String("log-level", "info", "log level, 'debug', 'info', 'warn' or 'error'")
	root.PersistentFlags().StringArray("types", nil, "csv column type, name=type (repeatable)")
	addCommands(root)
	return root
}

func main() {
	newRootCommand().Execute()
}
