package mcp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/txn2/pimixer/pkg/mixmcp"
)

func TestVerifyAPIConnection_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"success":true,"data":{"status":"healthy","version":"1.0.0"}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if err := verifyAPIConnection(mixmcp.NewHTTPClient(server.URL)); err != nil {
		t.Errorf("verifyAPIConnection() returned error for healthy server: %v", err)
	}
}

func TestVerifyAPIConnection_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if err := verifyAPIConnection(mixmcp.NewHTTPClient(url)); err == nil {
		t.Error("verifyAPIConnection() should return error when server is unreachable")
	}
}

func TestVerifyAPIConnection_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := verifyAPIConnection(mixmcp.NewHTTPClient(server.URL)); err == nil {
		t.Error("verifyAPIConnection() should return error when server returns 500")
	}
}

func TestVerifyAPIConnection_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	if err := verifyAPIConnection(mixmcp.NewHTTPClient(server.URL)); err == nil {
		t.Error("verifyAPIConnection() should return error for invalid JSON response")
	}
}

func TestCmd_FlagsExist(t *testing.T) {
	apiURLFlag := Cmd.Flags().Lookup("api-url")
	if apiURLFlag == nil {
		t.Fatal("Expected --api-url flag to exist")
	}
	if apiURLFlag.DefValue != "http://127.0.0.1:8080" {
		t.Errorf("Expected --api-url default to be 'http://127.0.0.1:8080', got %s", apiURLFlag.DefValue)
	}

	verboseFlag := Cmd.Flags().Lookup("verbose")
	if verboseFlag == nil {
		t.Fatal("Expected --verbose flag to exist")
	}
	if verboseFlag.Shorthand != "v" {
		t.Errorf("Expected --verbose shorthand to be 'v', got %s", verboseFlag.Shorthand)
	}
}
