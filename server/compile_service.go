package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/chazu/stackc/cache"
	"github.com/chazu/stackc/compiler"
	"github.com/chazu/stackc/pkg/bytecode"
)

// CompileProcedure is the Connect procedure path of the compile service.
const CompileProcedure = "/stackc.v1.CompileService/Compile"

// CompileRequest asks for one source unit to be compiled.
type CompileRequest struct {
	Name   string `cbor:"1,keyasint,omitempty"`
	Source string `cbor:"2,keyasint"`
	Format string `cbor:"3,keyasint,omitempty"` // text (default), binary or object
}

// Diagnostic is a compile error found in the request's source.
type Diagnostic struct {
	Kind    string `cbor:"1,keyasint"` // SyntaxError, NameError or TypeError
	Message string `cbor:"2,keyasint"`
	Line    int    `cbor:"3,keyasint"`
}

// CompileResponse carries the artifact, or the diagnostics that stopped it.
type CompileResponse struct {
	Code        []byte       `cbor:"1,keyasint,omitempty"`
	Listing     string       `cbor:"2,keyasint,omitempty"`
	Diagnostics []Diagnostic `cbor:"3,keyasint,omitempty"`
	Cached      bool         `cbor:"4,keyasint,omitempty"`
}

// CompileService implements the compile procedure.
type CompileService struct {
	cache *cache.Cache // may be nil
}

// NewCompileService creates a CompileService. c may be nil to disable caching.
func NewCompileService(c *cache.Cache) *CompileService {
	return &CompileService{cache: c}
}

// Handler returns the procedure path and its Connect handler.
func (s *CompileService) Handler() (string, http.Handler) {
	return CompileProcedure, connect.NewUnaryHandler(
		CompileProcedure,
		s.Compile,
		connect.WithCodec(newCBORCodec()),
	)
}

// Compile compiles req.Msg.Source. Errors in the program are reported as
// diagnostics in a successful response; only bad requests and compiler
// defects fail the call.
func (s *CompileService) Compile(
	ctx context.Context,
	req *connect.Request[CompileRequest],
) (*connect.Response[CompileResponse], error) {
	msg := req.Msg
	if strings.TrimSpace(msg.Source) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	if !validFormat(msg.Format) {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("format must be one of %s", strings.Join(bytecode.Formats, ", ")))
	}
	if err := ctx.Err(); err != nil {
		return nil, connect.NewError(connect.CodeCanceled, err)
	}

	prog, cached, err := cache.Compile(s.cache, msg.Name, msg.Source)
	if err != nil {
		if compiler.IsUserError(err) {
			return connect.NewResponse(&CompileResponse{
				Diagnostics: []Diagnostic{diagnosticFor(err)},
			}), nil
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	code, err := bytecode.Render(prog, msg.Format, msg.Name, msg.Source)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&CompileResponse{
		Code:    code,
		Listing: prog.Text(),
		Cached:  cached,
	}), nil
}

func validFormat(f string) bool {
	if f == "" {
		return true
	}
	for _, known := range bytecode.Formats {
		if f == known {
			return true
		}
	}
	return false
}

// diagnosticFor converts a user-facing compile error.
func diagnosticFor(err error) Diagnostic {
	d := Diagnostic{Message: err.Error(), Line: compiler.LineOf(err)}
	var se *compiler.SemanticError
	var pe *compiler.SyntaxError
	switch {
	case errors.As(err, &se):
		d.Kind, d.Message = string(se.Kind), se.Msg
	case errors.As(err, &pe):
		d.Kind, d.Message = "SyntaxError", pe.Msg
	}
	return d
}

// CompileClient calls a remote compile service.
type CompileClient struct {
	client *connect.Client[CompileRequest, CompileResponse]
}

// NewCompileClient creates a client for the service at baseURL
// (for example "http://localhost:8420").
func NewCompileClient(httpClient connect.HTTPClient, baseURL string) *CompileClient {
	return &CompileClient{
		client: connect.NewClient[CompileRequest, CompileResponse](
			httpClient,
			strings.TrimRight(baseURL, "/")+CompileProcedure,
			connect.WithCodec(newCBORCodec()),
		),
	}
}

// Compile sends req and returns the service's response.
func (c *CompileClient) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	resp, err := c.client.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
