package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"molecule/internal/logic"
	"molecule/internal/policy/service"
	"molecule/internal/policy/store"
	dErrors "molecule/pkg/domain-errors"
	"molecule/pkg/testutil"
)

const moduleHex = "0x00000000000000000000000000000000000000A1"

type PolicyHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestPolicyHandlerSuite(t *testing.T) {
	suite.Run(t, new(PolicyHandlerSuite))
}

func (s *PolicyHandlerSuite) SetupTest() {
	dir := logic.NewDirectory()
	s.Require().NoError(dir.Deploy(common.HexToAddress(moduleHex), logic.Func(func(common.Address) bool { return true })))
	h := New(service.New(store.NewInMemory(), dir), slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.RegisterAdmin(s.router)
	h.Register(s.router)
}

func (s *PolicyHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	return testutil.Do(s.T(), s.router, method, path, body)
}

func (s *PolicyHandlerSuite) errorCode(rec *httptest.ResponseRecorder) string {
	return testutil.ErrorCode(s.T(), rec)
}

func policy(id uint64) map[string]any {
	return map[string]any{"id": id, "module": moduleHex, "allow_list": true, "name": "kyc"}
}

func (s *PolicyHandlerSuite) TestAddAndGet() {
	rec := s.do(http.MethodPost, "/admin/policies", policy(1))
	s.Require().Equal(http.StatusCreated, rec.Code)

	created := testutil.Decode[PolicyResponse](s.T(), rec)
	s.Equal(uint64(1), created.ID)
	s.True(created.Enabled)
	s.Equal(common.HexToAddress(moduleHex).Hex(), created.Module)

	rec = s.do(http.MethodPost, "/admin/policies", policy(1))
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal(string(dErrors.CodeDuplicateID), s.errorCode(rec))

	rec = s.do(http.MethodGet, "/policies/1", nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/policies/2", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *PolicyHandlerSuite) TestNameKeptAsGiven() {
	body := policy(5)
	body["name"] = "  KYC tier 1 "
	rec := s.do(http.MethodPost, "/admin/policies", body)
	s.Require().Equal(http.StatusCreated, rec.Code)
	s.Equal("  KYC tier 1 ", testutil.Decode[PolicyResponse](s.T(), rec).Name)
}

func (s *PolicyHandlerSuite) TestInvalidUTF8NameRejected() {
	req := &AddPolicyRequest{ID: 1, Module: moduleHex, Name: "bad\xfe"}
	err := req.Validate()
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *PolicyHandlerSuite) TestValidation() {
	cases := map[string]map[string]any{
		"zero id":        {"id": 0, "module": moduleHex},
		"bad module":     {"id": 1, "module": "0x12"},
		"unknown module": {"id": 1, "module": "0x00000000000000000000000000000000000000ff"},
	}
	for name, body := range cases {
		s.Run(name, func() {
			rec := s.do(http.MethodPost, "/admin/policies", body)
			s.Equal(http.StatusBadRequest, rec.Code)
		})
	}

	s.Run("unknown fields are rejected", func() {
		rec := s.do(http.MethodPost, "/admin/policies", map[string]any{"id": 1, "module": moduleHex, "owner": "x"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("status requires enabled", func() {
		rec := s.do(http.MethodPut, "/admin/policies/1/status", map[string]any{})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("non numeric path id", func() {
		rec := s.do(http.MethodGet, "/policies/abc", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *PolicyHandlerSuite) TestBatch() {
	rec := s.do(http.MethodPost, "/admin/policies/batch", map[string]any{
		"policies": []any{policy(1), policy(2), policy(1)},
	})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/policies", nil)
	list := testutil.Decode[PolicyListResponse](s.T(), rec)
	s.Empty(list.Policies)

	rec = s.do(http.MethodPost, "/admin/policies/batch", map[string]any{
		"policies": []any{policy(2), policy(1)},
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/admin/policies/batch-delete", map[string]any{"ids": []uint64{1, 3}})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/admin/policies/batch-delete", map[string]any{"ids": []uint64{1, 2}})
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/policies", nil)
	list = testutil.Decode[PolicyListResponse](s.T(), rec)
	s.Empty(list.Policies)
}

func (s *PolicyHandlerSuite) TestStatusAndRemove() {
	s.Require().Equal(http.StatusCreated, s.do(http.MethodPost, "/admin/policies", policy(4)).Code)

	rec := s.do(http.MethodPut, "/admin/policies/4/status", map[string]any{"enabled": false})
	s.Require().Equal(http.StatusOK, rec.Code)
	resp := testutil.Decode[PolicyResponse](s.T(), rec)
	s.False(resp.Enabled)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/admin/policies/4", nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/admin/policies/4", nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPut, "/admin/policies/4/status", map[string]any{"enabled": true}).Code)
}
