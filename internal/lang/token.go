// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lang implements the surface language's lexer, parser, and AST —
// the front end that produces the tree package compiler and package interp
// both consume (spec.md's SUPPLEMENTED FEATURES).
package lang

import "fmt"

// Kind classifies a Token.
type Kind uint8

const (
	EOF Kind = iota
	Int
	String
	Ident

	Global
	If
	Else
	While
	Return
	Fun
	True
	False
	None

	LBrace
	RBrace
	LBracket
	RBracket
	LParen
	RParen
	Comma
	Colon
	Semicolon
	Dot
	Assign

	Mul
	Div
	Add
	Sub
	Lt
	Le
	Ge
	Gt
	EqEq
	Bang
	Amp
	Bar
)

var keywords = map[string]Kind{
	"global": Global,
	"if":     If,
	"else":   Else,
	"while":  While,
	"return": Return,
	"fun":    Fun,
	"true":   True,
	"false":  False,
	"None":   None,
}

var kindNames = map[Kind]string{
	EOF: "EOF", Int: "Int", String: "String", Ident: "Ident",
	Global: "global", If: "if", Else: "else", While: "while", Return: "return",
	Fun: "fun", True: "true", False: "false", None: "None",
	LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	LParen: "(", RParen: ")", Comma: ",", Colon: ":", Semicolon: ";",
	Dot: ".", Assign: "=",
	Mul: "*", Div: "/", Add: "+", Sub: "-",
	Lt: "<", Le: "<=", Ge: ">=", Gt: ">", EqEq: "==", Bang: "!", Amp: "&", Bar: "|",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "?"
}

// Pos is a source location, one-indexed on both axes to match the text an
// editor would show.
type Pos struct {
	Line, Col int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Token is one lexical unit: its kind, its literal text, and the span of
// source it covers.
type Token struct {
	Kind  Kind
	Text  string
	Start Pos
	End   Pos
}
