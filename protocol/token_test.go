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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_Basic(t *testing.T) {
	line := []byte("get foo bar")
	tokens, rest := tokenize(line)

	assert.Nil(t, rest)
	assert.Len(t, tokens, 3)
	assert.Equal(t, "get", string(tokens[0].Value))
	assert.Equal(t, "foo", string(tokens[1].Value))
	assert.Equal(t, "bar", string(tokens[2].Value))
}

func TestTokenize_CollapsesRepeatedSpaces(t *testing.T) {
	tokens, rest := tokenize([]byte("get   foo    bar"))
	assert.Nil(t, rest)
	assert.Len(t, tokens, 3)
}

func TestTokenize_EmptyLine(t *testing.T) {
	tokens, rest := tokenize([]byte(""))
	assert.Nil(t, rest)
	assert.Empty(t, tokens)
}

func TestTokenize_ExactBudget(t *testing.T) {
	tokens, rest := tokenize([]byte("a b c d e f g h"))
	assert.Len(t, tokens, MaxTokens)
	assert.Nil(t, rest)
}

func TestTokenize_OverflowReturnsRest(t *testing.T) {
	tokens, rest := tokenize([]byte("a b c d e f g h i j"))
	assert.Len(t, tokens, MaxTokens)
	assert.Equal(t, "i j", string(rest))
}
