package errors_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

type ErrorsTestSuite struct {
	suite.Suite
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}

func (s *ErrorsTestSuite) TestWrapPreservesCode() {
	base := errors.NotFoundf("pack %s not found", "weapons")
	wrapped := errors.Wrap(base, "get index")

	s.True(errors.IsNotFound(wrapped))
	s.Equal("get index", errors.GetMessage(wrapped))
	s.Equal("NOT_FOUND: get index: NOT_FOUND: pack weapons not found", wrapped.Error())
}

func (s *ErrorsTestSuite) TestWrapContextErrors() {
	s.True(errors.IsCanceled(errors.Wrap(context.Canceled, "fetch")))
	s.Equal(errors.CodeDeadlineExceeded, errors.GetCode(errors.Wrap(context.DeadlineExceeded, "fetch")))
	s.Equal(errors.CodeInternal, errors.GetCode(errors.Wrap(fmt.Errorf("disk"), "save")))
	s.Nil(errors.Wrap(nil, "noop"))
}

func (s *ErrorsTestSuite) TestWrapWithCodeCopiesMeta() {
	base := errors.NotFound("missing").WithMeta("pack", "weapons")
	wrapped := errors.WrapWithCode(base, errors.CodeUnavailable, "host down")

	s.True(errors.IsUnavailable(wrapped))
	s.Equal("weapons", errors.GetMeta(wrapped)["pack"])

	wrapped.Meta["pack"] = "armor"
	s.Equal("weapons", base.Meta["pack"])
}

func (s *ErrorsTestSuite) TestIsMatchesCode() {
	err := errors.Wrap(errors.PermissionDenied("gm only"), "rebuild cache")
	s.True(errors.Is(err, errors.New(errors.CodePermissionDenied, "")))
	s.False(errors.Is(err, errors.New(errors.CodeNotFound, "")))
}

func (s *ErrorsTestSuite) TestGetCode() {
	s.Equal(errors.CodeOK, errors.GetCode(nil))
	s.Equal(errors.CodeDataLoss, errors.GetCode(errors.DataLoss("corrupt snapshot")))
}

func (s *ErrorsTestSuite) TestGRPCRoundTrip() {
	testCases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{name: "not found", err: errors.NotFound("x"), code: codes.NotFound},
		{name: "invalid", err: errors.InvalidArgument("x"), code: codes.InvalidArgument},
		{name: "denied", err: errors.PermissionDenied("x"), code: codes.PermissionDenied},
		{name: "unavailable", err: errors.Unavailable("x"), code: codes.Unavailable},
		{name: "plain", err: fmt.Errorf("boom"), code: codes.Internal},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			grpcErr := errors.ToGRPCError(tc.err)
			st, ok := status.FromError(grpcErr)
			s.Require().True(ok)
			s.Equal(tc.code, st.Code())

			back := errors.FromGRPCError(grpcErr)
			s.Equal(tc.code, errors.GetCode(back).GRPCCode())
		})
	}

	s.Nil(errors.ToGRPCError(nil))
}

func (s *ErrorsTestSuite) TestValidationBuilder() {
	s.NoError(errors.NewValidationBuilder().Build())

	err := errors.NewValidationBuilder().
		RequiredField("Store").
		InvalidField("Concurrency", "must be positive").
		Build()
	s.Require().Error(err)
	s.True(errors.IsInvalidArgument(err))
	s.Equal("validation failed: Concurrency: is invalid: must be positive; Store: is required",
		errors.GetMessage(err))

	fields, ok := errors.GetMeta(err)["validation_errors"].(map[string][]string)
	s.Require().True(ok)
	s.Len(fields, 2)
}
