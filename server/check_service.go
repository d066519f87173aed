package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"connectrpc.com/connect"

	"github.com/RocioCM/tinyrust-compiler/compiler"
	"github.com/RocioCM/tinyrust-compiler/compiler/treefile"
)

// CheckServiceName is the fully-qualified name of the check service.
const CheckServiceName = "tinyrust.v1.CheckService"

// Procedure paths of the check service.
const (
	CheckProcedure       = "/" + CheckServiceName + "/Check"
	ListClassesProcedure = "/" + CheckServiceName + "/ListClasses"
	GetReportProcedure   = "/" + CheckServiceName + "/GetReport"
)

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// Document is a tree document sent by a client. Text formats go in Content,
// CBOR in Data.
type Document struct {
	Name    string `json:"name"`
	Format  string `json:"format"`
	Content string `json:"content,omitempty"`
	Data    []byte `json:"data,omitempty"`
}

// CheckRequest asks for a document to be checked.
type CheckRequest struct {
	Document Document `json:"document"`
}

// CheckResponse carries the outcome of a check.
type CheckResponse struct {
	ID          string                `json:"id"`
	OK          bool                  `json:"ok"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics"`
	Report      string                `json:"report"`
}

// ListClassesRequest asks for the consolidated classes of a document.
type ListClassesRequest struct {
	Document          Document `json:"document"`
	IncludePredefined bool     `json:"includePredefined,omitempty"`
}

// ListClassesResponse lists classes sorted by name.
type ListClassesResponse struct {
	Classes []*ClassInfo `json:"classes"`
}

// ClassInfo summarizes a consolidated class.
type ClassInfo struct {
	Name       string       `json:"name"`
	Superclass string       `json:"superclass,omitempty"`
	Predefined bool         `json:"predefined,omitempty"`
	Attributes []MemberInfo `json:"attributes"`
	Methods    []MemberInfo `json:"methods"`
}

// MemberInfo summarizes an attribute or a method.
type MemberInfo struct {
	Name       string `json:"name"`
	Signature  string `json:"signature"`
	DeclaredIn string `json:"declaredIn"`
	Inherited  bool   `json:"inherited,omitempty"`
}

// GetReportRequest fetches a report returned by an earlier Check.
type GetReportRequest struct {
	ID string `json:"id"`
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// CheckService implements the tinyrust.v1.CheckService Connect handler.
type CheckService struct {
	worker  *CheckWorker
	reports *ReportStore
}

// NewCheckService creates a CheckService.
func NewCheckService(worker *CheckWorker, reports *ReportStore) *CheckService {
	return &CheckService{worker: worker, reports: reports}
}

// decodeDocument converts a request document into a program tree.
func decodeDocument(doc Document) (*compiler.Program, error) {
	if doc.Format == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("format is required"))
	}
	f, err := treefile.ParseFormat(doc.Format)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	data := doc.Data
	if f != treefile.FormatCBOR {
		data = []byte(doc.Content)
	}
	if len(data) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("document is empty"))
	}
	prog, err := treefile.Decode(data, f)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if prog.Name == "" {
		prog.Name = doc.Name
	}
	return prog, nil
}

// Check decodes and checks a document.
func (s *CheckService) Check(
	ctx context.Context,
	req *connect.Request[CheckRequest],
) (*connect.Response[CheckResponse], error) {
	prog, err := decodeDocument(req.Msg.Document)
	if err != nil {
		return nil, err
	}

	r, err := s.worker.Check(ctx, prog)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.reports.Add(r)
	log.Infof("checked %s: %d errors, %d warnings (report %s)", r.Source, len(r.Errors()), len(r.Warnings()), r.ID)

	return connect.NewResponse(reportResponse(r)), nil
}

// GetReport returns a report from an earlier Check call.
func (s *CheckService) GetReport(
	ctx context.Context,
	req *connect.Request[GetReportRequest],
) (*connect.Response[CheckResponse], error) {
	if req.Msg.ID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("id is required"))
	}
	r, ok := s.reports.Lookup(req.Msg.ID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("report %q not found", req.Msg.ID))
	}
	return connect.NewResponse(reportResponse(r)), nil
}

func reportResponse(r *compiler.Report) *CheckResponse {
	return &CheckResponse{
		ID:          r.ID,
		OK:          r.OK(),
		Diagnostics: r.Diagnostics,
		Report:      r.Text(),
	}
}

// ListClasses returns the consolidated classes of a document. Declaration
// errors do not fail the call; the repaired table is listed.
func (s *CheckService) ListClasses(
	ctx context.Context,
	req *connect.Request[ListClassesRequest],
) (*connect.Response[ListClassesResponse], error) {
	prog, err := decodeDocument(req.Msg.Document)
	if err != nil {
		return nil, err
	}

	result, err := s.worker.Do(func(*Checker) interface{} {
		st, _ := compiler.Declarations(prog)
		entries := st.UserClasses()
		if req.Msg.IncludePredefined {
			entries = st.Classes()
		}
		infos := make([]*ClassInfo, 0, len(entries))
		for _, c := range entries {
			infos = append(infos, classToInfo(c))
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
		return &ListClassesResponse{Classes: infos}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(result.(*ListClassesResponse)), nil
}

func classToInfo(c *compiler.ClassEntry) *ClassInfo {
	info := &ClassInfo{
		Name:       c.Name,
		Superclass: c.Superclass,
		Predefined: c.Predefined,
		Attributes: []MemberInfo{},
		Methods:    []MemberInfo{},
	}
	for _, a := range c.Attributes() {
		sig := a.Type.String()
		if a.Public {
			sig = "pub " + sig
		}
		info.Attributes = append(info.Attributes, MemberInfo{
			Name:       a.Name,
			Signature:  sig,
			DeclaredIn: a.DeclaredIn,
			Inherited:  a.Inherited,
		})
	}
	for _, m := range c.Methods() {
		info.Methods = append(info.Methods, MemberInfo{
			Name:       m.Name,
			Signature:  methodSignature(m),
			DeclaredIn: m.DeclaredIn,
			Inherited:  m.Inherited,
		})
	}
	return info
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

// NewCheckServiceHandler builds an HTTP handler serving the check service
// procedures and returns the path prefix to mount it on.
func NewCheckServiceHandler(svc *CheckService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	check := connect.NewUnaryHandler(CheckProcedure, svc.Check, opts...)
	list := connect.NewUnaryHandler(ListClassesProcedure, svc.ListClasses, opts...)
	get := connect.NewUnaryHandler(GetReportProcedure, svc.GetReport, opts...)

	return "/" + CheckServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case CheckProcedure:
			check.ServeHTTP(w, r)
		case ListClassesProcedure:
			list.ServeHTTP(w, r)
		case GetReportProcedure:
			get.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// CheckClient calls a remote check service.
type CheckClient struct {
	check *connect.Client[CheckRequest, CheckResponse]
	list  *connect.Client[ListClassesRequest, ListClassesResponse]
	get   *connect.Client[GetReportRequest, CheckResponse]
}

// NewCheckClient creates a client for the check service at baseURL.
func NewCheckClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *CheckClient {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &CheckClient{
		check: connect.NewClient[CheckRequest, CheckResponse](httpClient, baseURL+CheckProcedure, opts...),
		list:  connect.NewClient[ListClassesRequest, ListClassesResponse](httpClient, baseURL+ListClassesProcedure, opts...),
		get:   connect.NewClient[GetReportRequest, CheckResponse](httpClient, baseURL+GetReportProcedure, opts...),
	}
}

// Check calls CheckService.Check.
func (c *CheckClient) Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	res, err := c.check.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// ListClasses calls CheckService.ListClasses.
func (c *CheckClient) ListClasses(ctx context.Context, req *ListClassesRequest) (*ListClassesResponse, error) {
	res, err := c.list.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// GetReport calls CheckService.GetReport.
func (c *CheckClient) GetReport(ctx context.Context, id string) (*CheckResponse, error) {
	res, err := c.get.CallUnary(ctx, connect.NewRequest(&GetReportRequest{ID: id}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// ErrorCode extracts the Connect code from an error returned by CheckClient.
func ErrorCode(err error) connect.Code {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return connect.CodeUnknown
}
