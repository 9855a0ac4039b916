/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command beansdbd starts the request-core daemon: bind a listen address,
// open the store, and serve the memcached-protocol subset until signalled
// to stop. Flag parsing stays intentionally thin — daemonizing, PID files,
// and privilege drop are out of scope; this is wiring, not a feature.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/golib/logger"

	"github.com/beansdb-io/beansdb/config"
	"github.com/beansdb-io/beansdb/stats"
	"github.com/beansdb-io/beansdb/server"
	"github.com/beansdb-io/beansdb/store"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "beansdbd",
		Short: "beansdb request-core daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", "", "address to listen on, e.g. :7900")
	flags.Int("threads", 0, "number of worker goroutines")
	flags.StringSlice("home-dirs", nil, "dirtree home directories")
	flags.Int("dirtree-height", 0, "dirtree directory depth")
	flags.Duration("flush-period", 0, "interval between periodic flush passes")
	flags.Int("flush-limit-kb", 0, "bytes written per flush pass, in KB")
	flags.Int("slow-cmd-ms", 0, "threshold in ms above which a command counts as slow")
	flags.Bool("stopme-enabled", false, "allow the stopme command to shut the daemon down")
	flags.Int("verbosity", 0, "initial log verbosity level")
	flags.String("config", "", "path to a configuration file")

	_ = v.BindPFlag("listen", flags.Lookup("listen"))
	_ = v.BindPFlag("threads", flags.Lookup("threads"))
	_ = v.BindPFlag("home_dirs", flags.Lookup("home-dirs"))
	_ = v.BindPFlag("dirtree_height", flags.Lookup("dirtree-height"))
	_ = v.BindPFlag("flush_period", flags.Lookup("flush-period"))
	_ = v.BindPFlag("flush_limit_kb", flags.Lookup("flush-limit-kb"))
	_ = v.BindPFlag("slow_cmd_ms", flags.Lookup("slow-cmd-ms"))
	_ = v.BindPFlag("stopme_enabled", flags.Lookup("stopme-enabled"))
	_ = v.BindPFlag("verbosity", flags.Lookup("verbosity"))

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if p, _ := flags.GetString("config"); p != "" {
			v.SetConfigFile(p)
			if err := v.ReadInConfig(); err != nil {
				return err
			}
		}
		return nil
	}

	return cmd
}

func run(v *viper.Viper) error {
	cfg, cErr := config.FromViper(v)
	if cErr != nil {
		return cErr
	}

	ctx := context.Background()
	log := logger.New(ctx)

	st, sErr := store.Open(store.Config{
		HomeDirs:   cfg.HomeDirs,
		Height:     cfg.DirtreeHeight,
		BeforeTime: cfg.BeforeTime,
		NThreads:   cfg.Threads,
	})
	if sErr != nil {
		return sErr
	}

	counters := stats.New()
	srv := server.New(cfg, st, counters, log)

	if err := srv.Listen(); err != nil {
		return err
	}

	srv.WaitNotify()
	return nil
}
