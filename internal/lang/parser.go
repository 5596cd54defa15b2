// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lang

import "fmt"

// Parser is a recursive-descent parser over a Token stream, one token of
// lookahead, no backtracking.
type Parser struct {
	toks []Token
	pos  int
}

// Parse lexes and parses src into a Program.
func Parse(src string) (*Program, error) {
	toks, err := NewLexer(src).Lex()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseProgram()
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) at(k Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k Kind) (Token, error) {
	if !p.at(k) {
		return Token{}, fmt.Errorf("lang: %s: expected %s, got %s %q", p.cur().Start, k, p.cur().Kind, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *Parser) parseProgram() (*Program, error) {
	prog := &Program{span: span{Pos{1, 1}}}
	for !p.at(EOF) {
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, st)
	}
	return prog, nil
}

func (p *Parser) parseBlock() (*Block, error) {
	open, err := p.expect(LBrace)
	if err != nil {
		return nil, err
	}
	b := &Block{span: span{open.Start}}
	for !p.at(RBrace) && !p.at(EOF) {
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		b.Statements = append(b.Statements, st)
	}
	if _, err := p.expect(RBrace); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	switch p.cur().Kind {
	case Global:
		tok := p.advance()
		name, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Semicolon); err != nil {
			return nil, err
		}
		return &GlobalDecl{span: span{tok.Start}, Name: name.Text}, nil
	case If:
		return p.parseIf()
	case While:
		return p.parseWhile()
	case Return:
		tok := p.advance()
		var val Expression
		if !p.at(Semicolon) {
			var err error
			val, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(Semicolon); err != nil {
			return nil, err
		}
		return &Return{span: span{tok.Start}, Value: val}, nil
	case LBrace:
		return p.parseBlock()
	default:
		return p.parseSimpleStatement()
	}
}

func (p *Parser) parseIf() (Statement, error) {
	tok := p.advance()
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	node := &If{span: span{tok.Start}, Cond: cond, Then: then}
	if p.at(Else) {
		p.advance()
		els, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		node.Else = els
	}
	return node, nil
}

func (p *Parser) parseWhile() (Statement, error) {
	tok := p.advance()
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &While{span: span{tok.Start}, Cond: cond, Body: body}, nil
}

// parseSimpleStatement handles both `target = value;` and `expr;`, since
// both start with an expression and only a lookahead for `=` tells them
// apart.
func (p *Parser) parseSimpleStatement() (Statement, error) {
	start := p.cur().Start
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(Assign) {
		p.advance()
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Semicolon); err != nil {
			return nil, err
		}
		return &Assignment{span: span{start}, Target: expr, Value: val}, nil
	}
	if _, err := p.expect(Semicolon); err != nil {
		return nil, err
	}
	return &ExprStatement{span: span{start}, Expr: expr}, nil
}

// Expression grammar, loosest to tightest:
//   or-expr   := and-expr   ( '|' and-expr  )*
//   and-expr  := cmp-expr   ( '&' cmp-expr  )*
//   cmp-expr  := add-expr   ( ('==' | '<' | '<=' | '>' | '>=') add-expr )*
//   add-expr  := mul-expr   ( ('+' | '-') mul-expr )*
//   mul-expr  := unary-expr ( ('*' | '/') unary-expr )*
//   unary-expr:= ('-' | '!') unary-expr | postfix-expr
//   postfix   := primary ( '.' IDENT | '[' expr ']' | '(' args ')' )*

func (p *Parser) parseExpr() (Expression, error) { return p.parseOr() }

func (p *Parser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(Bar) {
		tok := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{span: span{tok.Start}, Op: Or, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expression, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for p.at(Amp) {
		tok := p.advance()
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{span: span{tok.Start}, Op: And, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseCmp() (Expression, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	for {
		var op BinOp
		switch p.cur().Kind {
		case EqEq:
			op = Eq
		case Lt:
			op = Lt
		case Le:
			op = Lte
		case Gt:
			op = Gt
		case Ge:
			op = Gte
		default:
			return left, nil
		}
		tok := p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{span: span{tok.Start}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseAdd() (Expression, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.at(Add) || p.at(Sub) {
		op := Add
		if p.cur().Kind == Sub {
			op = Sub
		}
		tok := p.advance()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{span: span{tok.Start}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMul() (Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(Mul) || p.at(Div) {
		op := Mul
		if p.cur().Kind == Div {
			op = Div
		}
		tok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{span: span{tok.Start}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expression, error) {
	if p.at(Sub) {
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{span: span{tok.Start}, Op: Neg, Operand: operand}, nil
	}
	if p.at(Bang) {
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{span: span{tok.Start}, Op: Not, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case Dot:
			tok := p.advance()
			name, err := p.expect(Ident)
			if err != nil {
				return nil, err
			}
			expr = &FieldAccess{span: span{tok.Start}, Object: expr, Name: name.Text}
		case LBracket:
			tok := p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBracket); err != nil {
				return nil, err
			}
			expr = &IndexExpr{span: span{tok.Start}, Object: expr, Index: idx}
		case LParen:
			tok := p.advance()
			var args []Expression
			for !p.at(RParen) {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.at(Comma) {
					p.advance()
				}
			}
			if _, err := p.expect(RParen); err != nil {
				return nil, err
			}
			expr = &Call{span: span{tok.Start}, Callee: expr, Args: args}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expression, error) {
	tok := p.cur()
	switch tok.Kind {
	case Int:
		p.advance()
		var v int32
		for _, c := range tok.Text {
			v = v*10 + int32(c-'0')
		}
		return &IntLit{span: span{tok.Start}, Value: v}, nil
	case String:
		p.advance()
		return &StringLit{span: span{tok.Start}, Value: tok.Text}, nil
	case True:
		p.advance()
		return &BoolLit{span: span{tok.Start}, Value: true}, nil
	case False:
		p.advance()
		return &BoolLit{span: span{tok.Start}, Value: false}, nil
	case None:
		p.advance()
		return &NoneLit{span{tok.Start}}, nil
	case Ident:
		p.advance()
		return &Variable{span: span{tok.Start}, Name: tok.Text}, nil
	case LParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RParen); err != nil {
			return nil, err
		}
		return expr, nil
	case LBrace:
		return p.parseRecordLit()
	case Fun:
		return p.parseFuncLit()
	}
	return nil, fmt.Errorf("lang: %s: unexpected token %s %q", tok.Start, tok.Kind, tok.Text)
}

func (p *Parser) parseRecordLit() (Expression, error) {
	tok, err := p.expect(LBrace)
	if err != nil {
		return nil, err
	}
	rec := &RecordLit{span: span{tok.Start}}
	for !p.at(RBrace) {
		name, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Semicolon); err != nil {
			return nil, err
		}
		rec.Names = append(rec.Names, name.Text)
		rec.Values = append(rec.Values, val)
	}
	if _, err := p.expect(RBrace); err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *Parser) parseFuncLit() (Expression, error) {
	tok, err := p.expect(Fun)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	lit := &FuncLit{span: span{tok.Start}}
	for !p.at(RParen) {
		name, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		lit.Params = append(lit.Params, name.Text)
		if p.at(Comma) {
			p.advance()
		}
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	lit.Body = body
	return lit, nil
}
