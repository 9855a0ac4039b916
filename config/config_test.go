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

package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.Nil(t, cfg.Validate())
}

func TestValidate_RejectsEmptyListen(t *testing.T) {
	cfg := Default()
	cfg.Listen = ""
	err := cfg.Validate()
	require.NotNil(t, err)
	assert.True(t, err.IsCode(ErrorListenEmpty))
}

func TestValidate_RejectsNoHomeDirs(t *testing.T) {
	cfg := Default()
	cfg.HomeDirs = nil
	err := cfg.Validate()
	require.NotNil(t, err)
	assert.True(t, err.IsCode(ErrorHomeDirsEmpty))
}

func TestFromViper_AppliesDefaultsWhenUnset(t *testing.T) {
	v := viper.New()
	cfg, err := FromViper(v)
	require.Nil(t, err)
	assert.Equal(t, Default().Listen, cfg.Listen)
}

func TestFromViper_OverridesDefaults(t *testing.T) {
	v := viper.New()
	v.Set("listen", ":9999")
	v.Set("threads", 16)

	cfg, err := FromViper(v)
	require.Nil(t, err)
	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, 16, cfg.Threads)
}
