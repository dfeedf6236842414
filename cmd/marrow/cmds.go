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
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"marrow"
	"marrow/internal/batchio"
	"marrow/internal/config"
	"marrow/internal/logging"
)

func fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(1)
}

func baseSansExt(fname string) string {
	base := filepath.Base(fname)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Represents the state used when processing a command.
type Action struct {
	cmd      *cobra.Command
	quiet    bool
	cfg      *config.Config
	mem      memory.Allocator
	closeLog func()
	start    time.Time
}

func newAction(cmd *cobra.Command) *Action {
	result := &Action{cmd: cmd, start: time.Now()}
	result.quiet = result.getBool("quiet")
	result.cfg = result.loadConfig()
	level, err := logging.ParseLevel(result.cfg.LogLevel)
	if err != nil {
		fatal("%s", err.Error())
	}
	logger, closeLog := logging.SetupLogger(os.Stderr, level, result.cfg.SeqURL)
	slog.SetDefault(logger)
	result.closeLog = closeLog
	return result
}

func (a *Action) getBool(name string) bool {
	result, _ := a.cmd.Flags().GetBool(name)
	return result
}

func (a *Action) getInt64(name string) int64 {
	result, _ := a.cmd.Flags().GetInt64(name)
	return result
}

func (a *Action) getString(name string) string {
	result, _ := a.cmd.Flags().GetString(name)
	return result
}

func (a *Action) getStringArray(name string) []string {
	result, _ := a.cmd.Flags().GetStringArray(name)
	return result
}

func (a *Action) getStringSlice(name string) []string {
	result, _ := a.cmd.Flags().GetStringSlice(name)
	return result
}

func (a *Action) changed(name string) bool {
	f := a.cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// Settings come from the config profile, then from flags given on the
// command line.
func (a *Action) loadConfig() *config.Config {
	cfg := config.Default()
	fname := a.getString("config")
	profile := a.getString("profile")
	err := config.LoadConfigFile(fname, profile, &cfg)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		fmt.Printf("\n%s\n", strings.TrimRight(err.Error(), "\r\n"))
	}
	if a.changed("format") {
		cfg.Format = a.getString("format")
	}
	if a.changed("compression") {
		cfg.Compression = a.getString("compression")
	}
	if a.changed("suffix") {
		cfg.Suffix = a.getString("suffix")
	}
	if a.changed("memory-limit") {
		cfg.MemoryLimit = a.getInt64("memory-limit")
	}
	if a.changed("log-level") {
		cfg.LogLevel = a.getString("log-level")
	}
	return &cfg
}

// Returns the allocator for the command, bounded when a memory limit is set.
func (a *Action) Memory() memory.Allocator {
	if a.mem == nil {
		a.mem = memory.NewGoAllocator()
		if a.cfg.MemoryLimit > 0 {
			a.mem = marrow.NewLimitedAllocator(a.mem, a.cfg.MemoryLimit)
		}
	}
	return a.mem
}

// Load the named batch file, exiting on failure.
func (a *Action) load(fname string) arrow.Record {
	types, err := batchio.ParseTypes(a.getStringArray("types"))
	if err != nil {
		a.Exit(nil, err)
	}
	rec, err := batchio.Read(a.cmd.Context(), a.Memory(), fname, types)
	if err != nil {
		a.Exit(nil, err)
	}
	slog.Debug("loaded batch", "file", fname, "rows", rec.NumRows(), "columns", rec.NumCols())
	return rec
}

// Write the result to the output file when one is given. Returns the value
// to show.
func (a *Action) output(rec arrow.Record) interface{} {
	fname := a.getString("output")
	if fname == "" {
		return rec
	}
	if err := batchio.Write(a.Memory(), fname, rec, a.cfg.Compression); err != nil {
		a.Exit(nil, err)
	}
	return fmt.Sprintf("%d rows written to %s", rec.NumRows(), fname)
}

func rtrimEol(value string) string {
	return strings.TrimRight(value, "\r\n")
}

func (a *Action) showValue(v interface{}) error {
	switch vv := v.(type) {
	case nil:
		return nil
	case string:
		fmt.Println(rtrimEol(vv))
	case arrow.Record:
		switch a.cfg.Format {
		case "pretty":
			marrow.ShowRecord(os.Stdout, vv)
		case "json":
			return marrow.WriteJSON(os.Stdout, vv, 2)
		case "csv":
			return batchio.WriteCSV(a.Memory(), os.Stdout, vv)
		default:
			return errors.Errorf("unknown format '%s', 'pretty', 'json' or 'csv'", a.cfg.Format)
		}
	}
	return nil
}

func (a *Action) Append(format string, args ...interface{}) *Action {
	if a.quiet {
		return a
	}
	fmt.Printf(format, args...)
	return a
}

// Show the action banner message.
func (a *Action) Start(format string, args ...interface{}) *Action {
	if a.quiet {
		return a
	}
	var msg string
	msg = fmt.Sprintf(format, args...)
	msg = fmt.Sprintf("%s .. ", msg)
	fmt.Print(msg)
	return a
}

// Report a failed command on the banner and the log.
func (a *Action) fail(delta float64, err error) {
	a.Append("(%.1fs)\n%s\n", delta, rtrimEol(err.Error()))
	slog.Error("command failed", "command", a.cmd.Name(), "err", err)
}

// Update the action banner and exit.
func (a *Action) Exit(result interface{}, err error) {
	delta := time.Since(a.start).Seconds()
	if err != nil {
		a.fail(delta, err)
		a.closeLog()
		os.Exit(1)
	}
	a.Append("Ok (%.1fs)\n", delta)
	if err := a.showValue(result); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		a.closeLog()
		os.Exit(1)
	}
	a.closeLog()
	os.Exit(0)
}

//
// Indexes
//

func addIndex(cmd *cobra.Command, args []string) {
	// assert len(args) == 1
	action := newAction(cmd)
	fname := args[0]
	on := action.getStringSlice("on")
	action.Start("Add index to '%s' on %s", baseSansExt(fname), strings.Join(on, ","))
	rec := action.load(fname)
	result, err := marrow.AddIndex(action.Memory(), rec, on)
	if err != nil {
		action.Exit(nil, err)
	}
	action.Exit(action.output(result), nil)
}

func makeIndex(cmd *cobra.Command, args []string) {
	// assert len(args) == 1
	action := newAction(cmd)
	fname := args[0]
	on := action.getStringSlice("on")
	action.Start("Make index of '%s' on %s", baseSansExt(fname), strings.Join(on, ","))
	rec := action.load(fname)
	index, err := marrow.MakeIndex(action.Memory(), rec, on)
	if err != nil {
		action.Exit(nil, err)
	}
	schema := arrow.NewSchema([]arrow.Field{{Name: marrow.IndexColumnName, Type: index.DataType()}}, nil)
	result := array.NewRecord(schema, []arrow.Array{index}, int64(index.Len()))
	action.Exit(action.output(result), nil)
}

//
// Sort & merge
//

func sortBatch(cmd *cobra.Command, args []string) {
	// assert len(args) == 1
	action := newAction(cmd)
	fname := args[0]
	on := action.getStringSlice("on")
	action.Start("Sort '%s' on %s", baseSansExt(fname), strings.Join(on, ","))
	rec := action.load(fname)
	result, err := marrow.Sort(action.Memory(), rec, on)
	if err != nil {
		action.Exit(nil, err)
	}
	action.Exit(action.output(result), nil)
}

func mergeBatches(cmd *cobra.Command, args []string) {
	// assert len(args) == 2
	action := newAction(cmd)
	lname, rname := args[0], args[1]
	on := action.getStringSlice("on")
	how := action.getString("how")
	action.Start("Merge (%s) '%s' and '%s' on %s",
		how, baseSansExt(lname), baseSansExt(rname), strings.Join(on, ","))
	left := action.load(lname)
	right := action.load(rname)
	result, err := marrow.Merge(action.Memory(), left, right, on, how, action.cfg.Suffix)
	if err != nil {
		action.Exit(nil, err)
	}
	action.Exit(action.output(result), nil)
}

//
// Misc
//

func showBatch(cmd *cobra.Command, args []string) {
	// assert len(args) == 1
	action := newAction(cmd)
	fname := args[0]
	action.Start("Show '%s'", baseSansExt(fname))
	rec := action.load(fname)
	action.Exit(rec, nil)
}
