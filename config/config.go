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

// Package config binds the daemon's tunables, loadable from a file, the
// environment, or flags via spf13/viper the way the rest of the pack's
// daemons do.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/nabbar/golib/errors"
)

// Config holds every daemon-level tunable the request core and store need
// at startup. The trailing comments name the historical short flag each
// field corresponds to; cmd/beansdbd defines long flags only (--listen,
// --threads, --home-dirs, ...), and MaxConns, BeforeTime and MMapBudgetMB
// have no flag there.
type Config struct {
	Listen      string        `mapstructure:"listen"`       // -l
	Threads     int           `mapstructure:"threads"`      // -t: worker goroutines
	MaxConns    int           `mapstructure:"max_conns"`    // -c
	HomeDirs    []string      `mapstructure:"home_dirs"`    // -b / -H
	DirtreeHeight int         `mapstructure:"dirtree_height"`
	BeforeTime  int64         `mapstructure:"before_time"`
	FlushPeriod time.Duration `mapstructure:"flush_period"` // -f
	FlushLimitKB int          `mapstructure:"flush_limit_kb"`
	SlowCmdMS   int           `mapstructure:"slow_cmd_ms"`
	StopMeEnabled bool        `mapstructure:"stopme_enabled"`
	Verbosity   int           `mapstructure:"verbosity"` // -vv...
	MMapBudgetMB int64        `mapstructure:"mmap_budget_mb"`
}

// Default returns the daemon's out-of-the-box configuration.
func Default() *Config {
	return &Config{
		Listen:        ":7900",
		Threads:       4,
		MaxConns:      1024,
		HomeDirs:      []string{"./data"},
		DirtreeHeight: 2,
		FlushPeriod:   time.Second,
		FlushLimitKB:  1024,
		SlowCmdMS:     100,
		StopMeEnabled: false,
		Verbosity:     0,
		MMapBudgetMB:  4096,
	}
}

// FromViper binds v onto a copy of Default, so any key left unset by the
// caller's file/env/flags keeps its default value.
func FromViper(v *viper.Viper) (*Config, errors.Error) {
	cfg := Default()

	v.SetDefault("listen", cfg.Listen)
	v.SetDefault("threads", cfg.Threads)
	v.SetDefault("max_conns", cfg.MaxConns)
	v.SetDefault("home_dirs", cfg.HomeDirs)
	v.SetDefault("dirtree_height", cfg.DirtreeHeight)
	v.SetDefault("flush_period", cfg.FlushPeriod)
	v.SetDefault("flush_limit_kb", cfg.FlushLimitKB)
	v.SetDefault("slow_cmd_ms", cfg.SlowCmdMS)
	v.SetDefault("stopme_enabled", cfg.StopMeEnabled)
	v.SetDefault("verbosity", cfg.Verbosity)
	v.SetDefault("mmap_budget_mb", cfg.MMapBudgetMB)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, ErrorConfigUnmarshal.Error(err)
	}

	if e := cfg.Validate(); e != nil {
		return nil, e
	}
	return cfg, nil
}

// Validate rejects a configuration the daemon could not run with.
func (c *Config) Validate() errors.Error {
	if c.Listen == "" {
		return ErrorListenEmpty.Error(nil)
	}
	if c.Threads <= 0 {
		return ErrorThreadsInvalid.Error(nil)
	}
	if len(c.HomeDirs) == 0 {
		return ErrorHomeDirsEmpty.Error(nil)
	}
	if c.DirtreeHeight < 0 {
		return ErrorDirtreeHeightInvalid.Error(nil)
	}
	return nil
}

// SlowCommandThreshold converts SlowCmdMS into a time.Duration for conn.
func (c *Config) SlowCommandThreshold() time.Duration {
	return time.Duration(c.SlowCmdMS) * time.Millisecond
}
