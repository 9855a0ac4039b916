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

// Package protocol tokenizes and parses the memcached text protocol subset
// beansdb speaks: get/set/append/incr/delete/stats/flush_all/version/quit/
// verbosity/optimize_stat/stopme.
package protocol

const (
	// MaxTokens bounds a single tokenize() call; a get with more keys than
	// this reparses the remainder from the returned rest, exactly as the
	// source does to keep the token array fixed-size.
	MaxTokens = 8

	// MaxKeyLen is the longest key accepted on the wire.
	MaxKeyLen = 255

	// MaxVerbosityLevel clamps the verbosity command's argument.
	MaxVerbosityLevel = 2
)

// Token is a borrowed slice into the command line passed to tokenize; it is
// not copied. Tokens are only valid for the duration of the handler call
// that produced them.
type Token struct {
	Value []byte
}

// tokenize splits line in place on ASCII space, mutating separators to 0x00
// exactly like the source's in-place substitution (kept for the zero-copy
// parsing discipline described in the design notes, even though Go slicing
// does not strictly require NUL terminators). It returns at most MaxTokens
// tokens; rest holds whatever text follows once the token budget is spent,
// so get's multi-key path can resume tokenizing from there. rest is nil when
// the whole line was consumed within the budget.
func tokenize(line []byte) (tokens []Token, rest []byte) {
	tokens = make([]Token, 0, MaxTokens)

	i := 0
	n := len(line)

	for i < n && len(tokens) < MaxTokens {
		for i < n && line[i] == ' ' {
			line[i] = 0
			i++
		}
		if i >= n {
			break
		}

		start := i
		for i < n && line[i] != ' ' {
			i++
		}
		tokens = append(tokens, Token{Value: line[start:i]})

		if i < n {
			line[i] = 0
			i++
		}
	}

	for i < n && line[i] == ' ' {
		i++
	}

	if len(tokens) >= MaxTokens && i < n {
		rest = line[i:]
	}

	return tokens, rest
}
