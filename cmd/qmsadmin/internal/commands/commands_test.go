package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"
)

func TestBuildApp_memory(t *testing.T) {
	w := &WorkflowFlags{
		UserPoolID:    "pool",
		UsersTable:    "Users",
		StoreType:     "memory",
		DirectoryType: "memory",
		NoAuth:        true,
		NoEnforce:     true,
	}

	a, err := w.buildApp(context.Background())
	require.NoError(t, err)
	t.Cleanup(a.close)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invite",
		strings.NewReader(`{"email":"Root@x.com","permissionLevel":5,"invitedBy":"bootstrap"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"Invitation created","email":"Root@x.com"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me?email=root@x.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"email":"root@x.com","permissionLevel":5,"privileged":true}`, rec.Body.String())
}

func TestBuildApp_authRequiresIssuer(t *testing.T) {
	w := &WorkflowFlags{
		StoreType:     "memory",
		DirectoryType: "memory",
		AWS:           AWSFlags{Region: "us-east-1", Local: true},
	}

	_, err := w.buildApp(context.Background())
	require.ErrorContains(t, err, "auth issuer")
}

func TestServeCmd_Validate(t *testing.T) {
	require.NoError(t, (&ServeCmd{}).Validate())
	require.NoError(t, (&ServeCmd{Cert: "c.pem", Key: "k.pem"}).Validate())
	require.Error(t, (&ServeCmd{CertSSM: "/tls/cert"}).Validate())
	require.Error(t, (&ServeCmd{Cert: "c.pem"}).Validate())
}

func TestLambdaHandlerPaths(t *testing.T) {
	var cli struct {
		Lambda LambdaCmd `cmd:""`
	}
	parser, err := kong.New(&cli)
	require.NoError(t, err)

	for name, path := range handlerPaths {
		_, err := parser.Parse([]string{"lambda", "--handler", name})
		require.NoError(t, err)
		require.Equal(t, name, cli.Lambda.Handler)
		require.True(t, strings.HasPrefix(path, "/"))
	}

	_, err = parser.Parse([]string{"lambda", "--handler", "delete-user"})
	require.Error(t, err)
}
