package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	apphttp "github.com/jhoicas/inventrack-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/inventrack-api/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = int64(7)
	testIssuer    = "inventrack-test"
	testExpMin    = 60
)

// guardedApp GET /protected detrás de AuthMiddleware + RequireRole(roles...).
func guardedApp(roles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/protected",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(roles...),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"user_id": apphttp.GetUserID(c), "role": apphttp.GetRole(c)})
		},
	)
	return app
}

func signed(t *testing.T, role string, expMin int) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, expMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func get(t *testing.T, app *fiber.App, path, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name     string
		allowed  []string
		header   func(t *testing.T) string
		status   int
		wantCode string
	}{
		{"rol exacto", []string{entity.RoleAdmin}, func(t *testing.T) string { return signed(t, entity.RoleAdmin, testExpMin) }, http.StatusOK, ""},
		{"uno de varios roles", []string{entity.RoleAdmin, entity.RoleBodeguero}, func(t *testing.T) string { return signed(t, entity.RoleBodeguero, testExpMin) }, http.StatusOK, ""},
		{"rol ajeno", []string{entity.RoleAdmin}, func(t *testing.T) string { return signed(t, entity.RoleVendedor, testExpMin) }, http.StatusForbidden, "FORBIDDEN"},
		{"token sin rol", []string{entity.RoleAdmin}, func(t *testing.T) string { return signed(t, "", testExpMin) }, http.StatusUnauthorized, "MISSING_ROLE"},
		{"token vencido", []string{entity.RoleAdmin}, func(t *testing.T) string { return signed(t, entity.RoleAdmin, -1) }, http.StatusUnauthorized, ""},
		{"sin cabecera", []string{entity.RoleAdmin}, func(*testing.T) string { return "" }, http.StatusUnauthorized, ""},
		{"token malformado", []string{entity.RoleAdmin}, func(*testing.T) string { return "Bearer token.invalido.aqui" }, http.StatusUnauthorized, ""},
		{"esquema distinto de Bearer", []string{entity.RoleAdmin}, func(*testing.T) string { return "Basic dXNlcjpwYXNz" }, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := get(t, guardedApp(tc.allowed...), "/protected", tc.header(t))
			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.wantCode != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Contains(t, string(body), tc.wantCode)
			}
		})
	}
}

func TestAuthMiddleware_LoadsClaimsIntoLocals(t *testing.T) {
	resp := get(t, guardedApp(entity.RoleBodeguero), "/protected", signed(t, entity.RoleBodeguero, testExpMin))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		UserID int64  `json:"user_id"`
		Role   string `json:"role"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body.UserID)
	assert.Equal(t, entity.RoleBodeguero, body.Role)
}

// Matriz de acceso de las rutas reales: lecturas del catálogo públicas, almacenes e inventario
// autenticados, historial, alertas y exportes solo para admin.
func TestRouter_RoleGuards(t *testing.T) {
	s := newServer(t)
	bodeguero := bearer(t, 900, entity.RoleBodeguero)

	type access struct{ anon, vendedor, bodeguero, admin int }
	const (
		ok   = http.StatusOK
		unau = http.StatusUnauthorized
		forb = http.StatusForbidden
	)
	routes := []struct {
		path string
		want access
	}{
		{"/api/products", access{ok, ok, ok, ok}},
		{"/api/warehouses", access{unau, ok, ok, ok}},
		{"/api/inventory/stock", access{unau, ok, ok, ok}},
		{"/api/inventory/movements/entries", access{unau, forb, forb, ok}},
		{"/api/inventory/movements/exits", access{unau, forb, forb, ok}},
		{"/api/inventory/alerts", access{unau, forb, forb, ok}},
		{"/api/inventory/export/csv", access{unau, forb, forb, ok}},
		{"/api/users", access{unau, forb, forb, ok}},
	}
	for _, r := range routes {
		t.Run(r.path, func(t *testing.T) {
			assert.Equal(t, r.want.anon, s.do(t, http.MethodGet, r.path, "", nil).StatusCode, "anónimo")
			assert.Equal(t, r.want.vendedor, s.do(t, http.MethodGet, r.path, s.vendedor, nil).StatusCode, "vendedor")
			assert.Equal(t, r.want.bodeguero, s.do(t, http.MethodGet, r.path, bodeguero, nil).StatusCode, "bodeguero")
			assert.Equal(t, r.want.admin, s.do(t, http.MethodGet, r.path, s.admin, nil).StatusCode, "admin")
		})
	}
}

func TestJWT_RoundTripAndRejections(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, entity.RoleBodeguero, testIssuer, testExpMin)
	require.NoError(t, err)

	userID, role, err := pkgjwt.Parse(testJWTSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)
	assert.Equal(t, entity.RoleBodeguero, role)

	_, _, err = pkgjwt.Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err, "secret incorrecto")

	expired, err := pkgjwt.Generate(testJWTSecret, testUserID, entity.RoleAdmin, testIssuer, -1)
	require.NoError(t, err)
	_, _, err = pkgjwt.Parse(testJWTSecret, expired)
	assert.Error(t, err, "token vencido")
}
