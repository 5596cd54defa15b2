// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lang

import "testing"

func TestLexKinds(t *testing.T) {
	toks, err := NewLexer(`x = 12 + "hi\n"; # trailing comment
global y;`).Lex()
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	want := []Kind{Ident, Assign, Int, Add, String, Semicolon, Global, Ident, Semicolon, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
	if toks[4].Text != "hi\n" {
		t.Errorf("string literal escape: got %q, want %q", toks[4].Text, "hi\n")
	}
}

func TestLexKeywordsNotConfusedWithIdents(t *testing.T) {
	toks, err := NewLexer("while whilex true truefoo").Lex()
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	want := []Kind{While, Ident, True, Ident, EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestLexUnterminatedStringIsError(t *testing.T) {
	if _, err := NewLexer(`"unterminated`).Lex(); err == nil {
		t.Fatal("expected an error for an unterminated string literal")
	}
}

func TestLexTwoCharOperators(t *testing.T) {
	toks, err := NewLexer("<= >= == < > =").Lex()
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	want := []Kind{Le, Ge, EqEq, Lt, Gt, Assign, EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}
