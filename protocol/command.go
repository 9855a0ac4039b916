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

package protocol

import (
	"bytes"
	"strconv"
)

// Kind identifies which handler a parsed Command routes to.
type Kind int

const (
	Get Kind = iota
	Set
	Append
	Incr
	Delete
	Stats
	FlushAll
	Verbosity
	Version
	Quit
	OptimizeStat
	StopMe
)

// Command is the parsed, validated representation of one protocol line.
// Fields not relevant to Kind are left at their zero value.
type Command struct {
	Kind    Kind
	Noreply bool

	Keys [][]byte // Get

	Key   []byte // Set, Append, Incr, Delete
	Flag  uint32 // Set, Append
	Ver   uint32 // Set, Append: exptime reinterpreted as a version integer
	VLen  int    // Set, Append: body length to read via NRead

	Delta uint64 // Incr

	StatsReset bool // Stats

	FlushLimit int  // FlushAll
	FlushTree  int  // FlushAll
	FlushSet   bool // FlushAll: whether limit/tree were given

	VerbosityLevel int // Verbosity
}

// ParseLine tokenizes and validates one protocol line (without its line
// terminator), routing to the command's arity rules from §4.4. When a get
// line holds more tokens than MaxTokens, parseGet keeps tokenizing the
// remainder with ParseMoreKeys until every key on the line is collected.
func ParseLine(line []byte) (*Command, *ReplyError) {
	tokens, rest := tokenize(line)
	if len(tokens) == 0 {
		return nil, ErrUnknownCommand
	}

	name := string(tokens[0].Value)
	args := tokens[1:]

	switch name {
	case "get":
		return parseGet(args, rest)
	case "set":
		return parseStore(Set, args)
	case "append":
		return parseStore(Append, args)
	case "incr":
		return parseIncr(args)
	case "delete":
		return parseDelete(args)
	case "stats":
		return parseStats(args)
	case "flush_all":
		return parseFlushAll(args)
	case "verbosity":
		return parseVerbosity(args)
	case "version":
		return simple(Version, args)
	case "quit":
		return simple(Quit, args)
	case "optimize_stat":
		return simple(OptimizeStat, args)
	case "stopme":
		return simple(StopMe, args)
	default:
		return nil, ErrUnknownCommand
	}
}

// ParseMoreKeys continues tokenizing a get key list from a remainder
// returned when the prior tokenize() call hit MaxTokens; there is no
// command word on this line, only keys.
func ParseMoreKeys(rest []byte) (keys [][]byte, next []byte) {
	tokens, next := tokenize(rest)
	for _, t := range tokens {
		keys = append(keys, t.Value)
	}
	return keys, next
}

func parseGet(args []Token, rest []byte) (*Command, *ReplyError) {
	if len(args) < 1 {
		return nil, ErrBadFormat
	}

	cmd := &Command{Kind: Get}
	for _, t := range args {
		if len(t.Value) > MaxKeyLen {
			return nil, ErrBadFormat
		}
		cmd.Keys = append(cmd.Keys, t.Value)
	}

	for rest != nil {
		var more [][]byte
		more, rest = ParseMoreKeys(rest)
		for _, k := range more {
			if len(k) > MaxKeyLen {
				return nil, ErrBadFormat
			}
		}
		cmd.Keys = append(cmd.Keys, more...)
	}

	return cmd, nil
}

// parseStore handles both set and append: <key> <flags> <exptime> <len> [noreply].
func parseStore(kind Kind, args []Token) (*Command, *ReplyError) {
	noreply, args := splitNoreply(args)

	if len(args) != 4 {
		return nil, ErrBadFormat
	}
	if len(args[0].Value) > MaxKeyLen {
		return nil, ErrBadFormat
	}

	flag, e1 := parseUint32(args[1].Value)
	ver, e2 := parseUint32(args[2].Value)
	vlen, e3 := strconv.Atoi(string(args[3].Value))
	if e1 != nil || e2 != nil || e3 != nil || vlen < 0 {
		return nil, ErrBadFormat
	}

	return &Command{
		Kind:    kind,
		Key:     args[0].Value,
		Flag:    flag,
		Ver:     ver,
		VLen:    vlen,
		Noreply: noreply,
	}, nil
}

func parseIncr(args []Token) (*Command, *ReplyError) {
	noreply, args := splitNoreply(args)

	if len(args) != 2 {
		return nil, ErrBadFormat
	}
	if len(args[0].Value) > MaxKeyLen {
		return nil, ErrBadFormat
	}

	delta, err := strconv.ParseUint(string(args[1].Value), 10, 64)
	if err != nil {
		return nil, ErrBadDelta
	}

	return &Command{Kind: Incr, Key: args[0].Value, Delta: delta, Noreply: noreply}, nil
}

func parseDelete(args []Token) (*Command, *ReplyError) {
	noreply, args := splitNoreply(args)

	if len(args) != 1 {
		return nil, ErrBadFormat
	}
	if len(args[0].Value) > MaxKeyLen {
		return nil, ErrBadFormat
	}

	return &Command{Kind: Delete, Key: args[0].Value, Noreply: noreply}, nil
}

func parseStats(args []Token) (*Command, *ReplyError) {
	if len(args) > 1 {
		return nil, ErrBadFormat
	}

	cmd := &Command{Kind: Stats}
	if len(args) == 1 {
		if !bytes.Equal(args[0].Value, []byte("reset")) {
			return nil, ErrBadFormat
		}
		cmd.StatsReset = true
	}
	return cmd, nil
}

func parseFlushAll(args []Token) (*Command, *ReplyError) {
	noreply, args := splitNoreply(args)

	if len(args) > 2 {
		return nil, ErrBadFormat
	}

	cmd := &Command{Kind: FlushAll, Noreply: noreply}
	if len(args) >= 1 {
		limit, err := strconv.Atoi(string(args[0].Value))
		if err != nil {
			return nil, ErrBadFormat
		}
		cmd.FlushLimit = limit
		cmd.FlushSet = true
	}
	if len(args) == 2 {
		tree, err := strconv.Atoi(string(args[1].Value))
		if err != nil {
			return nil, ErrBadFormat
		}
		cmd.FlushTree = tree
	}
	return cmd, nil
}

func parseVerbosity(args []Token) (*Command, *ReplyError) {
	if len(args) != 1 {
		return nil, ErrBadFormat
	}
	lvl, err := strconv.Atoi(string(args[0].Value))
	if err != nil || lvl < 0 {
		return nil, ErrBadFormat
	}
	if lvl > MaxVerbosityLevel {
		lvl = MaxVerbosityLevel
	}
	return &Command{Kind: Verbosity, VerbosityLevel: lvl}, nil
}

func simple(kind Kind, args []Token) (*Command, *ReplyError) {
	if len(args) != 0 {
		return nil, ErrBadFormat
	}
	return &Command{Kind: kind}, nil
}

// splitNoreply peels a trailing "noreply" token, which always occupies the
// last position when present.
func splitNoreply(args []Token) (bool, []Token) {
	if len(args) > 0 && bytes.Equal(args[len(args)-1].Value, []byte("noreply")) {
		return true, args[:len(args)-1]
	}
	return false, args
}

func parseUint32(b []byte) (uint32, error) {
	n, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
