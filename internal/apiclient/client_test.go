package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companyops/internal/core"
)

func TestDoSendsBearerAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "/tasks", r.URL.Path)
		assert.Equal(t, "ann@corp.io", r.URL.Query().Get("assignee"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"_id":"t1","title":"Ship","status":"pending"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	var tasks []core.Task
	err := c.Get(context.Background(), "tok-1", "/tasks", map[string][]string{"assignee": {"ann@corp.io"}}, &tasks)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
}

func TestDoEncodesJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "done", body["status"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := New(srv.URL).Patch(context.Background(), "tok", "/tasks/t1", core.TaskStatusChange{Status: core.TaskDone}, nil)
	assert.NoError(t, err)
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantIs     error
	}{
		{"string detail", http.StatusBadRequest, `{"detail":"Email already registered"}`, "Email already registered", nil},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","amount"],"msg":"field required"}]}`, "amount: field required", nil},
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Invalid token"}`, "Invalid token", ErrUnauthorized},
		{"forbidden", http.StatusForbidden, `{"detail":"Core only"}`, "Core only", ErrForbidden},
		{"not found no body", http.StatusNotFound, ``, "", ErrNotFound},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(srv.URL).Get(context.Background(), "tok", "/reports", nil, nil)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			if tt.wantDetail == "" {
				assert.Equal(t, "Failed", apiErr.Message())
			}
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			} else {
				assert.False(t, errors.Is(err, ErrUnauthorized))
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, WithTimeout(20*time.Millisecond))
	err := c.Get(context.Background(), "tok", "/salary", nil, nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "/salary", te.Path)
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		switch creds.Email {
		case "ann@corp.io":
			_, _ = w.Write([]byte(`{"token":"tok-ann","user":{"email":"ann@corp.io","name":"Ann","role":"core"}}`))
		case "bob@corp.io":
			_, _ = w.Write([]byte(`{"token":"tok-bob","user":{"email":"bob@corp.io","role":"intern"}}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
		}
	}))
	defer srv.Close()
	c := New(srv.URL)

	res, err := c.Login(context.Background(), Credentials{Email: "ann@corp.io", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok-ann", res.Token)
	assert.Equal(t, core.RoleCore, res.User.Role)

	_, err = c.Login(context.Background(), Credentials{Email: "bob@corp.io", Password: "pw"})
	assert.ErrorIs(t, err, core.ErrUnknownRole)

	_, err = c.Login(context.Background(), Credentials{Email: "eve@corp.io", Password: "pw"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid credentials", apiErr.Message())
}

func TestRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		var reg Registration
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
		assert.Equal(t, core.RoleEmployee, reg.Role)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	err := New(srv.URL).Register(context.Background(), Registration{Name: "Bob", Email: "bob@corp.io", Password: "pw", Role: core.RoleEmployee})
	assert.NoError(t, err)
}

func TestAnalyticsSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "6", r.URL.Query().Get("months"))
		_, _ = w.Write([]byte(`{"months":["Jan"],"finance":{"revenue":[5],"expense":[2],"net":[3]},"salary":{"total":[1]}}`))
	}))
	defer srv.Close()

	a, err := New(srv.URL).AnalyticsSummary(context.Background(), "tok", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jan"}, a.Months)
	assert.Equal(t, []float64{3}, a.Finance.Net)
}
