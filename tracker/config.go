package tracker

import (
	"fmt"
	"log"
	"strconv"
)

// SignatureConfig is one configuration record as the engine consumes
// it: a signature obligation's header fields, duplicated across every
// covered-plate sibling produced from the same "signature" block, plus
// that sibling's own plate number and ignore list.
type SignatureConfig struct {
	Name         string
	SigPlate     int64
	Visits       *RangeSet
	SigFields    *RangeSet
	NSigFields   int
	Plate        int64
	IgnoreFields *RangeSet
	Serial       int
}

// configParser is a hand-rolled recursive-descent parser for the
// signature-definition grammar. On a syntax error it logs the error,
// resynchronises to the next top-level "}", and continues, matching the
// error-recovery strategy of the tool this config language comes from.
type configParser struct {
	lex      *configLexer
	tok      token
	errCount int
	serial   int
}

// ParseConfig parses a signature configuration document, returning the
// flattened list of per-covered-plate configuration records and the
// number of syntax errors encountered. A non-zero error count means the
// caller should abort before any audit processing, per the tool's
// configuration-error handling contract.
func ParseConfig(src string) ([]*SignatureConfig, int) {
	p := &configParser{lex: newConfigLexer(src)}
	p.advance()

	var out []*SignatureConfig
	for p.tok.kind != tokEOF {
		recs, ok := p.parseSignature()
		if ok {
			out = append(out, recs...)
		}
	}
	return out, p.errCount
}

func (p *configParser) advance() {
	p.tok = p.lex.next()
}

func (p *configParser) errorf(format string, args ...interface{}) {
	p.errCount++
	log.Printf("config:%d: %s", p.tok.line, fmt.Sprintf(format, args...))
}

// expectIdent consumes an identifier token whose text equals want,
// reporting an error otherwise.
func (p *configParser) expectIdent(want string) bool {
	if p.tok.kind != tokIdent || p.tok.text != want {
		p.errorf("expected %q, found %q", want, p.tok.text)
		return false
	}
	p.advance()
	return true
}

func (p *configParser) expectNumber() (int64, bool) {
	if p.tok.kind != tokNumber {
		p.errorf("expected number, found %q", p.tok.text)
		return 0, false
	}
	v, err := strconv.ParseInt(p.tok.text, 10, 64)
	if err != nil {
		p.errorf("invalid number %q", p.tok.text)
		return 0, false
	}
	p.advance()
	return v, true
}

func (p *configParser) expectString() (string, bool) {
	if p.tok.kind != tokString {
		p.errorf("expected string, found %q", p.tok.text)
		return "", false
	}
	s := p.tok.text
	p.advance()
	return s, true
}

// resync skips tokens up to and including the next top-level "}", or
// EOF if none remains, discarding everything parsed for the current
// signature block.
func (p *configParser) resync() {
	for p.tok.kind != tokRBrace && p.tok.kind != tokEOF {
		p.advance()
	}
	if p.tok.kind == tokRBrace {
		p.advance()
	}
}

// parseSignature parses one `signature STRING plate N visit visitRange
// fields range "{" plateDefn+ "}"` block, flattening it into one
// SignatureConfig per plateDefn.
func (p *configParser) parseSignature() ([]*SignatureConfig, bool) {
	if !p.expectIdent("signature") {
		p.resync()
		return nil, false
	}
	name, ok := p.expectString()
	if !ok {
		p.resync()
		return nil, false
	}
	if !p.expectIdent("plate") {
		p.resync()
		return nil, false
	}
	sigPlate, ok := p.expectNumber()
	if !ok {
		p.resync()
		return nil, false
	}
	if !p.expectIdent("visit") {
		p.resync()
		return nil, false
	}
	visits, ok := p.parseVisitRange()
	if !ok {
		p.resync()
		return nil, false
	}
	if !p.expectIdent("fields") {
		p.resync()
		return nil, false
	}
	sigFields, ok := p.parseRange()
	if !ok {
		p.resync()
		return nil, false
	}
	if p.tok.kind != tokLBrace {
		p.errorf("expected '{', found %q", p.tok.text)
		p.resync()
		return nil, false
	}
	p.advance()

	var out []*SignatureConfig
	for p.tok.kind == tokIdent && p.tok.text == "plate" {
		rec, ok := p.parsePlateDefn(name, sigPlate, visits, sigFields)
		if !ok {
			p.resync()
			return nil, false
		}
		out = append(out, rec)
	}
	if p.tok.kind != tokRBrace {
		p.errorf("expected '}', found %q", p.tok.text)
		p.resync()
		return nil, false
	}
	p.advance()
	if len(out) == 0 {
		p.errorf("signature %q has no covered plates", name)
		return nil, false
	}
	return out, true
}

func (p *configParser) parsePlateDefn(name string, sigPlate int64, visits, sigFields *RangeSet) (*SignatureConfig, bool) {
	if !p.expectIdent("plate") {
		return nil, false
	}
	plate, ok := p.expectNumber()
	if !ok {
		return nil, false
	}
	ignore, ok := p.parseIgnoreFields()
	if !ok {
		return nil, false
	}
	if p.tok.kind != tokSemi {
		p.errorf("expected ';', found %q", p.tok.text)
		return nil, false
	}
	p.advance()

	p.serial++
	return &SignatureConfig{
		Name:         name,
		SigPlate:     sigPlate,
		Visits:       visits.Duplicate(),
		SigFields:    sigFields.Duplicate(),
		NSigFields:   int(sigFields.Width()),
		Plate:        plate,
		IgnoreFields: ignore,
		Serial:       p.serial,
	}, true
}

func (p *configParser) parseIgnoreFields() (*RangeSet, bool) {
	if p.tok.kind != tokIdent || p.tok.text != "ignore" {
		return &RangeSet{}, true
	}
	p.advance()
	if !p.expectIdent("fields") {
		return nil, false
	}
	return p.parseRange()
}

func (p *configParser) parseVisitRange() (*RangeSet, bool) {
	if p.tok.kind == tokStar {
		p.advance()
		rs := &RangeSet{}
		rs.append(0, maxWildcardValue)
		return rs, true
	}
	return p.parseRange()
}

// parseRange parses `element ("," element)*` with `element := N | N "-" N`,
// building the set in left-to-right text order.
func (p *configParser) parseRange() (*RangeSet, bool) {
	rs := &RangeSet{}
	for {
		lo, ok := p.expectNumber()
		if !ok {
			return nil, false
		}
		hi := lo
		if p.tok.kind == tokDash {
			p.advance()
			v, ok := p.expectNumber()
			if !ok {
				return nil, false
			}
			hi = v
		}
		rs.append(lo, hi)
		if p.tok.kind != tokComma {
			break
		}
		p.advance()
	}
	return rs, true
}
