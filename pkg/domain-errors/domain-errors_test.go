package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestMessageFallsBackToCode() {
	s.Equal("request not found", (&Error{Code: CodeNotFound, Message: "request not found"}).Error())
	s.Equal("conflict", (&Error{Code: CodeConflict}).Error())
}

func (s *DomainErrorsSuite) TestWrapPreservesOriginalCode() {
	s.Run("domain error keeps its code", func() {
		inner := New(CodeForbidden, "approver cannot resolve this request")
		wrapped := Wrap(inner, CodeInternal, "resolve failed")
		s.True(HasCode(wrapped, CodeForbidden))
		s.Equal("resolve failed", wrapped.Error())
	})

	s.Run("plain error takes the given code", func() {
		wrapped := Wrap(errors.New("connection reset"), CodeInternal, "load request")
		s.True(HasCode(wrapped, CodeInternal))
		s.ErrorContains(errors.Unwrap(wrapped), "connection reset")
	})
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	a := New(CodeConflict, "request already resolved")
	b := New(CodeConflict, "file already restored")
	s.ErrorIs(a, b)
	s.NotErrorIs(a, New(CodeNotFound, ""))

	chained := fmt.Errorf("outer: %w", a)
	s.ErrorIs(chained, &Error{Code: CodeConflict})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeValidation, CodeOf(fmt.Errorf("x: %w", New(CodeValidation, "reason is required"))))
	s.Equal(CodeInternal, CodeOf(errors.New("boom")))
	s.False(HasCode(nil, CodeNotFound))
}

func (s *DomainErrorsSuite) TestTranslate() {
	errMissing := errors.New("missing")
	errTaken := errors.New("taken")
	rules := []Rule{
		{Target: errMissing, Code: CodeNotFound, Message: "request not found"},
		{Target: errTaken, Code: CodeConflict, Message: "request is no longer pending"},
	}

	s.Run("nil stays nil", func() {
		s.NoError(Translate(nil, "load request", rules...))
	})

	s.Run("matching rule sets code and message", func() {
		err := Translate(fmt.Errorf("find: %w", errTaken), "load request", rules...)
		s.True(HasCode(err, CodeConflict))
		s.Equal("request is no longer pending", err.Error())
		s.ErrorIs(err, errTaken)
	})

	s.Run("unmatched error is internal", func() {
		err := Translate(errors.New("connection reset"), "load request", rules...)
		s.True(HasCode(err, CodeInternal))
		s.Equal("load request", err.Error())
	})

	s.Run("domain error keeps its code", func() {
		inner := &Error{Code: CodeValidation, Message: "file is not live", Err: errMissing}
		err := Translate(fmt.Errorf("tx: %w", inner), "resolve request", rules...)
		s.True(HasCode(err, CodeValidation))
		s.Equal("resolve request", err.Error())
	})
}
