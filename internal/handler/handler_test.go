package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"compsystem/internal/infrastructure/cache"
	"compsystem/internal/infrastructure/lock"
	"compsystem/internal/infrastructure/metrics"
	"compsystem/internal/model"
	"compsystem/internal/repository"
	"compsystem/internal/service"
	"compsystem/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Field   string          `json:"field"`
	Data    json.RawMessage `json:"data"`
}

const testUploadLimit = 4 << 10

type testServer struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T, authEnabled bool) *testServer {
	t.Helper()
	log := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := repository.NewMemoryCompensationRepository()

	comp, err := service.NewCompensationService(store, lock.NewLocalLocker(), m, log, service.CompensationOptions{
		Policy:   model.CompensationPolicy{CatalogVariant: model.VariantTwoToppings},
		PageSize: 2,
		Location: time.UTC,
	})
	require.NoError(t, err)
	imports := service.NewImportService(store, 100, m, log)
	auth := service.NewAuthService(repository.NewMemoryOperatorRepository(), cache.NewMemorySessionStore(), log, service.AuthOptions{
		Enabled:    authEnabled,
		Secret:     "secret",
		TTL:        time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, auth.EnsureOperator(context.Background(), "host@cafe.test", "pw"))

	h := NewHandler(comp, imports, auth, testUploadLimit, log)
	return &testServer{
		t:      t,
		router: SetupRouter(h, auth, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), log),
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) postJSON(path string, body any) (*httptest.ResponseRecorder, envelope) {
	data, err := json.Marshal(body)
	require.NoError(s.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)
	return w, decode(s.t, w)
}

func (s *testServer) get(path string) (*httptest.ResponseRecorder, envelope) {
	w := s.do(httptest.NewRequest(http.MethodGet, path, nil))
	return w, decode(s.t, w)
}

func (s *testServer) login() {
	_, env := s.postJSON("/api/v1/auth/login", LoginRequest{Email: "host@cafe.test", Password: "pw"})
	require.Equal(s.t, response.CodeSuccess, env.Code, env.Message)
	var res service.LoginResult
	require.NoError(s.t, json.Unmarshal(env.Data, &res))
	s.token = res.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHandler_RequiresSession(t *testing.T) {
	s := newTestServer(t, true)
	w, env := s.get("/api/v1/compensation/card?phone=0521234567")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.CodeUnauthorized, env.Code)

	_, env = s.postJSON("/api/v1/auth/login", LoginRequest{Email: "host@cafe.test", Password: "wrong"})
	assert.Equal(t, response.CodeInvalidCredentials, env.Code)
}

func TestHandler_CreateRedeemFlow(t *testing.T) {
	s := newTestServer(t, true)
	s.login()

	_, env := s.postJSON("/api/v1/compensation/create", service.CreateCompensationRequest{
		Phone: "0521234567", Name: "Dana", CouponKind: "CREDIT", CreditAmount: "30",
	})
	require.Equal(t, response.CodeSuccess, env.Code, env.Message)
	var created model.Compensation
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Credit amount: ₪30", created.CouponType)

	_, env = s.postJSON("/api/v1/compensation/redeem", service.RedeemRequest{ID: created.ID, Approver: "Ran"})
	require.Equal(t, response.CodeSuccess, env.Code, env.Message)
	var redeemed struct {
		Redeemed bool         `json:"redeemed"`
		Card     service.Card `json:"card"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &redeemed))
	assert.True(t, redeemed.Redeemed)
	require.Len(t, redeemed.Card.Items, 1)
	assert.True(t, redeemed.Card.Items[0].Redeemed)

	// 重复兑换：成功响应，卡片不变
	_, env = s.postJSON("/api/v1/compensation/redeem", service.RedeemRequest{ID: created.ID, Approver: "Avi"})
	require.Equal(t, response.CodeSuccess, env.Code)
	require.NoError(t, json.Unmarshal(env.Data, &redeemed))
	assert.False(t, redeemed.Redeemed)
	assert.Equal(t, "Ran", *redeemed.Card.Items[0].RedeemedBy)
}

func TestHandler_ValidationNamesField(t *testing.T) {
	s := newTestServer(t, true)
	s.login()

	_, env := s.postJSON("/api/v1/compensation/create", service.CreateCompensationRequest{Phone: "0521234567", Name: "Dana", CouponKind: "CREDIT", CreditAmount: "-5"})
	assert.Equal(t, response.CodeInvalidAmount, env.Code)
	assert.Equal(t, "credit_amount", env.Field)

	_, env = s.postJSON("/api/v1/compensation/redeem", service.RedeemRequest{ID: 1})
	assert.Equal(t, response.CodeMissingApprover, env.Code)
	assert.Equal(t, "approver", env.Field)
}

func TestHandler_CreateAcceptsNumericCreditAmount(t *testing.T) {
	s := newTestServer(t, false)

	_, env := s.postJSON("/api/v1/compensation/create", map[string]any{
		"phone": "0521234567", "name": "Dana", "coupon_kind": "CREDIT", "credit_amount": 30,
	})
	require.Equal(t, response.CodeSuccess, env.Code, env.Message)
	var created model.Compensation
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Credit amount: ₪30", created.CouponType)

	_, env = s.postJSON("/api/v1/compensation/create", map[string]any{
		"phone": "0521234567", "name": "Dana", "coupon_kind": "CREDIT", "credit_amount": 0,
	})
	assert.Equal(t, response.CodeInvalidAmount, env.Code)
	assert.Equal(t, "credit_amount", env.Field)

	_, env = s.postJSON("/api/v1/compensation/create", map[string]any{
		"phone": "0521234567", "name": "Dana", "coupon_kind": "CREDIT", "credit_amount": "abc",
	})
	assert.Equal(t, response.CodeInvalidAmount, env.Code)
	assert.Equal(t, "credit_amount", env.Field)
}

func TestHandler_ListPagination(t *testing.T) {
	s := newTestServer(t, false)
	for i := 0; i < 3; i++ {
		_, env := s.postJSON("/api/v1/compensation/create", service.CreateCompensationRequest{Phone: "0521234567", Name: "Dana", CouponKind: "DESSERT"})
		require.Equal(t, response.CodeSuccess, env.Code, env.Message)
	}

	_, env := s.get("/api/v1/compensation/list?status=open&page=2")
	require.Equal(t, response.CodeSuccess, env.Code, env.Message)
	var page service.Page
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 1)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)
	assert.Equal(t, 1, page.PrevPage)
	assert.Equal(t, 2, page.NextPage)

	_, env = s.get("/api/v1/compensation/list?page=3")
	assert.Equal(t, response.CodePageOutOfRange, env.Code)

	_, env = s.get("/api/v1/compensation/list?date_from=15-01-2026")
	assert.Equal(t, response.CodeInvalidFilter, env.Code)
}

func TestHandler_ImportAndExport(t *testing.T) {
	s := newTestServer(t, false)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "customers.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("phone,name,coupon\n0521234567,Dana,Dessert of choice\n,Nobody,x\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compensation/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	env := decode(t, s.do(req))
	require.Equal(t, response.CodeSuccess, env.Code, env.Message)
	var res service.ImportResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, int64(1), res.Inserted)
	assert.Equal(t, 1, res.Discarded)
	assert.Equal(t, "0521234567", res.FirstPhone)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/compensation/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "coupons_list.xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestHandler_ImportRejectsOversizedUpload(t *testing.T) {
	s := newTestServer(t, false)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "big.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("phone,name\n"))
	require.NoError(t, err)
	for body.Len() < 2*testUploadLimit {
		_, err = part.Write([]byte("0521234567,Dana\n"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compensation/import", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	env := decode(t, s.do(req))
	assert.Equal(t, response.CodeImportTooLarge, env.Code)
	assert.Equal(t, "file", env.Field)

	// 未声明长度的请求体在读取时被截断
	req = httptest.NewRequest(http.MethodPost, "/api/v1/compensation/import", io.MultiReader(bytes.NewReader(body.Bytes())))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = -1
	env = decode(t, s.do(req))
	assert.Equal(t, response.CodeImportTooLarge, env.Code)
}

func TestHandler_HealthMetricsAndRequestID(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	_, env := s.postJSON("/api/v1/compensation/create", service.CreateCompensationRequest{Phone: "0521234567", Name: "Dana", CouponKind: "DESSERT"})
	require.Equal(t, response.CodeSuccess, env.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `compensation_created_total{coupon="Dessert of choice"} 1`)
}

func TestHandler_Catalog(t *testing.T) {
	s := newTestServer(t, false)
	_, env := s.get("/api/v1/coupon/catalog")
	require.Equal(t, response.CodeSuccess, env.Code)
	var data struct {
		Variant  string               `json:"variant"`
		Currency string               `json:"currency"`
		Options  []model.CouponOption `json:"options"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "two_toppings", data.Variant)
	assert.Equal(t, "₪", data.Currency)
	assert.Len(t, data.Options, 4)
}
