package stmt

import (
	"strings"
	"unicode"
)

// token kinds produced by the lexer
const (
	tokWord = iota
	tokString
	tokPunct
)

type token struct {
	kind int
	text string
}

// lex splits sql into words, quoted strings and punctuation. Line and block
// comments are skipped. Double-quoted identifiers lex as words with the
// quotes stripped; single-quoted literals keep '' escapes collapsed.
func lex(sql string) []token {
	var toks []token
	rs := []rune(sql)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '-' && i+1 < len(rs) && rs[i+1] == '-':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(rs) && rs[i+1] == '*':
			i += 2
			for i+1 < len(rs) && !(rs[i] == '*' && rs[i+1] == '/') {
				i++
			}
			i += 2
		case r == '\'':
			var sb strings.Builder
			i++
			for i < len(rs) {
				if rs[i] == '\'' {
					if i+1 < len(rs) && rs[i+1] == '\'' {
						sb.WriteRune('\'')
						i += 2
						continue
					}
					i++
					break
				}
				sb.WriteRune(rs[i])
				i++
			}
			toks = append(toks, token{tokString, sb.String()})
		case r == '"':
			var sb strings.Builder
			i++
			for i < len(rs) {
				if rs[i] == '"' {
					if i+1 < len(rs) && rs[i+1] == '"' {
						sb.WriteRune('"')
						i += 2
						continue
					}
					i++
					break
				}
				sb.WriteRune(rs[i])
				i++
			}
			toks = append(toks, token{tokWord, sb.String()})
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_' || rs[i] == '$') {
				i++
			}
			toks = append(toks, token{tokWord, string(rs[start:i])})
		default:
			toks = append(toks, token{tokPunct, string(r)})
			i++
		}
	}
	return toks
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) done() bool {
	return p.pos >= len(p.toks) || (p.toks[p.pos].kind == tokPunct && p.toks[p.pos].text == ";")
}

func (p *parser) peek() token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return token{}
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

// peekWord returns the upper-cased text of the current token if it is a word
func (p *parser) peekWord() string {
	t := p.peek()
	if t.kind != tokWord {
		return ""
	}
	return strings.ToUpper(t.text)
}

// accept consumes the current token if it is the given keyword
func (p *parser) accept(kw string) bool {
	if p.peekWord() == kw {
		p.pos++
		return true
	}
	return false
}

// qualifiedName consumes word(.word)* and returns the dotted name
func (p *parser) qualifiedName() string {
	var parts []string
	for {
		t := p.peek()
		if t.kind != tokWord {
			break
		}
		parts = append(parts, p.next().text)
		if !(p.peek().kind == tokPunct && p.peek().text == ".") {
			break
		}
		p.next()
	}
	return strings.Join(parts, ".")
}

// nameList consumes word[, word...] and returns the names
func (p *parser) nameList() []string {
	var names []string
	for {
		t := p.peek()
		if t.kind != tokWord {
			break
		}
		names = append(names, p.next().text)
		if !(p.peek().kind == tokPunct && p.peek().text == ",") {
			break
		}
		p.next()
	}
	return names
}

// skipParens skips a balanced parenthesized group if one starts here
func (p *parser) skipParens() {
	if !(p.peek().kind == tokPunct && p.peek().text == "(") {
		return
	}
	depth := 0
	for p.pos < len(p.toks) {
		t := p.next()
		if t.kind != tokPunct {
			continue
		}
		if t.text == "(" {
			depth++
		} else if t.text == ")" {
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// ParseAdmin classifies sql as one of the administrative statements the
// gatekeeper handles and returns its event form. The second return is false
// for anything else (queries, DML, unknown syntax); such statements carry no
// payload and belong to the host engine's regular execution path.
func ParseAdmin(sql string) (Statement, bool) {
	p := &parser{toks: lex(sql)}
	switch p.peekWord() {
	case "COPY":
		p.next()
		return p.parseCopy()
	case "CREATE":
		p.next()
		switch p.peekWord() {
		case "ROLE", "USER", "GROUP":
			p.next()
			return p.parseCreateRole()
		case "EXTENSION":
			p.next()
			return p.parseCreateExtension()
		case "OR", "FUNCTION":
			return p.parseCreateFunction()
		}
		return nil, false
	case "ALTER":
		p.next()
		if p.accept("ROLE") || p.accept("USER") {
			return p.parseAlterRole()
		}
		return nil, false
	case "DROP":
		p.next()
		if p.accept("ROLE") || p.accept("USER") || p.accept("GROUP") {
			return p.parseDropRole()
		}
		return nil, false
	case "GRANT":
		p.next()
		return p.parseGrantRole(true)
	case "REVOKE":
		p.next()
		return p.parseGrantRole(false)
	case "SET":
		p.next()
		return p.parseVariableSet()
	}
	return nil, false
}

func (p *parser) parseCopy() (Statement, bool) {
	p.accept("BINARY")
	ev := Copy{TableName: p.qualifiedName()}
	if ev.TableName == "" {
		return nil, false
	}
	p.skipParens()
	switch p.peekWord() {
	case "FROM":
		ev.IsFrom = true
	case "TO":
	default:
		return nil, false
	}
	p.next()
	if p.accept("PROGRAM") {
		ev.IsProgram = true
		if t := p.peek(); t.kind == tokString {
			ev.Filename = p.next().text
		}
		return ev, true
	}
	switch {
	case p.peek().kind == tokString:
		ev.Filename = p.next().text
	case p.accept("STDIN"), p.accept("STDOUT"):
		// in-session stream, no file target
	default:
		return nil, false
	}
	return ev, true
}

// roleOptions parses the CREATE/ALTER ROLE option list. Flag keywords
// normalize to explicit boolean values; SUPERUSER and NOSUPERUSER share the
// option name "superuser" the way the engine's own parser treats them.
func (p *parser) roleOptions() []RoleOption {
	var opts []RoleOption
	flags := map[string]string{
		"SUPERUSER": "superuser", "NOSUPERUSER": "superuser",
		"CREATEDB": "createdb", "NOCREATEDB": "createdb",
		"CREATEROLE": "createrole", "NOCREATEROLE": "createrole",
		"INHERIT": "inherit", "NOINHERIT": "inherit",
		"LOGIN": "login", "NOLOGIN": "login",
		"REPLICATION": "replication", "NOREPLICATION": "replication",
		"BYPASSRLS": "bypassrls", "NOBYPASSRLS": "bypassrls",
	}
	for !p.done() {
		w := p.peekWord()
		if w == "" {
			p.next()
			continue
		}
		if name, ok := flags[w]; ok {
			p.next()
			val := "true"
			if strings.HasPrefix(w, "NO") {
				val = "false"
			}
			opts = append(opts, RoleOption{Name: name, Value: val})
			continue
		}
		switch w {
		case "PASSWORD":
			p.next()
			val := ""
			if t := p.peek(); t.kind == tokString {
				val = p.next().text
			} else if p.accept("NULL") {
				val = ""
			}
			opts = append(opts, RoleOption{Name: "password", Value: val})
		case "ENCRYPTED", "UNENCRYPTED":
			p.next() // modifier on the following PASSWORD keyword
		case "CONNECTION":
			p.next()
			p.accept("LIMIT")
			val := ""
			if t := p.peek(); t.kind == tokWord {
				val = p.next().text
			}
			opts = append(opts, RoleOption{Name: "connectionlimit", Value: val})
		case "VALID":
			p.next()
			p.accept("UNTIL")
			val := ""
			if t := p.peek(); t.kind == tokString {
				val = p.next().text
			}
			opts = append(opts, RoleOption{Name: "validuntil", Value: val})
		case "IN":
			p.next()
			if p.accept("ROLE") || p.accept("GROUP") {
				opts = append(opts, RoleOption{Name: "addroleto", Value: strings.Join(p.nameList(), ",")})
			}
		case "ROLE", "USER":
			p.next()
			opts = append(opts, RoleOption{Name: "rolemembers", Value: strings.Join(p.nameList(), ",")})
		case "ADMIN":
			p.next()
			opts = append(opts, RoleOption{Name: "adminmembers", Value: strings.Join(p.nameList(), ",")})
		case "SYSID":
			p.next()
			p.next()
		default:
			p.next()
			opts = append(opts, RoleOption{Name: strings.ToLower(w)})
		}
	}
	return opts
}

func (p *parser) parseCreateRole() (Statement, bool) {
	t := p.peek()
	if t.kind != tokWord {
		return nil, false
	}
	ev := CreateRole{RoleName: p.next().text}
	p.accept("WITH")
	ev.Options = p.roleOptions()
	return ev, true
}

func (p *parser) parseAlterRole() (Statement, bool) {
	p.accept("IF")
	p.accept("EXISTS")
	t := p.peek()
	if t.kind != tokWord {
		return nil, false
	}
	ev := AlterRole{RoleName: p.next().text}
	// ALTER ROLE name SET/RESET param is the per-role settings form; it
	// carries no role options but still classifies as a role alteration.
	if w := p.peekWord(); w == "SET" || w == "RESET" {
		return ev, true
	}
	p.accept("WITH")
	ev.Options = p.roleOptions()
	return ev, true
}

func (p *parser) parseDropRole() (Statement, bool) {
	if p.accept("IF") {
		p.accept("EXISTS")
	}
	names := p.nameList()
	if len(names) == 0 {
		return nil, false
	}
	return DropRole{RoleNames: names}, true
}

func (p *parser) parseGrantRole(isGrant bool) (Statement, bool) {
	// Privilege grants (GRANT SELECT ON table TO x) have an ON clause before
	// TO/FROM; those are not role grants and stay unclassified.
	sep := "TO"
	if !isGrant {
		sep = "FROM"
		if p.accept("ADMIN") {
			p.accept("OPTION")
			p.accept("FOR")
		}
	}
	var roles []string
	for !p.done() {
		w := p.peekWord()
		if w == "ON" {
			return nil, false
		}
		if w == sep {
			p.next()
			break
		}
		t := p.next()
		if t.kind == tokWord {
			roles = append(roles, t.text)
		}
	}
	grantees := p.nameList()
	if len(roles) == 0 || len(grantees) == 0 {
		return nil, false
	}
	return GrantRole{GrantedRoles: roles, Grantees: grantees, IsGrant: isGrant}, true
}

func (p *parser) parseCreateExtension() (Statement, bool) {
	if p.accept("IF") {
		p.accept("NOT")
		p.accept("EXISTS")
	}
	t := p.peek()
	if t.kind != tokWord {
		return nil, false
	}
	return CreateExtension{ExtensionName: p.next().text}, true
}

func (p *parser) parseCreateFunction() (Statement, bool) {
	if p.accept("OR") {
		p.accept("REPLACE")
	}
	if !p.accept("FUNCTION") {
		return nil, false
	}
	name := p.qualifiedName()
	if name == "" {
		return nil, false
	}
	return CreateFunction{FunctionName: name}, true
}

func (p *parser) parseVariableSet() (Statement, bool) {
	ev := VariableSet{}
	if p.accept("LOCAL") {
		ev.IsLocal = true
	} else {
		p.accept("SESSION")
	}
	if p.peekWord() == "AUTHORIZATION" {
		p.next()
		ev.Name = "session_authorization"
	} else {
		ev.Name = strings.ToLower(p.qualifiedName())
	}
	if ev.Name == "" {
		return nil, false
	}
	if p.accept("TO") || (p.peek().kind == tokPunct && p.peek().text == "=") {
		if p.peek().kind == tokPunct && p.peek().text == "=" {
			p.next()
		}
	}
	if t := p.peek(); t.kind == tokWord || t.kind == tokString {
		ev.Value = p.next().text
	}
	return ev, true
}
