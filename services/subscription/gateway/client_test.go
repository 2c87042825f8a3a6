package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateUser(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(http.MethodPost, r.Method)
		require.Equal("/api/v1/nas/10.0.0.1/ppp-secrets", r.URL.Path)

		var creds Credentials
		require.NoError(json.NewDecoder(r.Body).Decode(&creds))
		require.Equal("sub42", creds.Username)
		require.Equal("profile-bronze", creds.ProfileName)

		json.NewEncoder(w).Encode(RemoteAuthProfile{
			RemoteID:      "*1A",
			Username:      creds.Username,
			ProfileName:   creds.ProfileName,
			RateLimit:     creds.RateLimit,
			RouterAddress: "10.0.0.1",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	profile, err := client.CreateUser(context.Background(), RouterRef{Address: "10.0.0.1"}, Credentials{
		Username:    "sub42",
		Password:    "secret",
		ProfileName: "profile-bronze",
		RateLimit:   "2M/10M",
	})
	require.NoError(err)
	require.Equal("*1A", profile.RemoteID)
}

func TestCreateUserTagsRouterErrors(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"message": "router unreachable"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	_, err := client.CreateUser(context.Background(), RouterRef{Address: "10.0.0.1"}, Credentials{Username: "sub42"})
	require.Error(err)
	require.True(IsGatewayError(err))
	require.Contains(err.Error(), "router unreachable")
}

func TestDeleteUser(t *testing.T) {
	require := require.New(t)

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(http.MethodDelete, r.Method)
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	require.NoError(client.DeleteUser(context.Background(), RouterRef{Address: "10.0.0.1"}, "*1A"))
	require.Equal("/api/v1/nas/10.0.0.1/ppp-secrets/*1A", gotPath)
}

func TestGetProfileCarriesRouterRef(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ProfileSnapshot{
			RemoteID:    "*1A",
			Username:    "sub42",
			Password:    "secret",
			ProfileName: "profile-bronze",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	snapshot, err := client.GetProfile(context.Background(), RouterRef{Address: "10.0.0.1"}, "sub42")
	require.NoError(err)
	require.Equal("10.0.0.1", snapshot.Router.Address)
	require.Equal("secret", snapshot.Password)
}

func TestRestoreProfileRecreatesSecret(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		require.NoError(json.NewDecoder(r.Body).Decode(&creds))
		require.Equal("secret", creds.Password)

		json.NewEncoder(w).Encode(RemoteAuthProfile{RemoteID: "*2B", Username: creds.Username})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	profile, err := client.RestoreProfile(context.Background(), ProfileSnapshot{
		Router:      RouterRef{Address: "10.0.0.1"},
		RemoteID:    "*1A",
		Username:    "sub42",
		Password:    "secret",
		ProfileName: "profile-bronze",
	})
	require.NoError(err)
	require.Equal("*2B", profile.RemoteID, "restored secret gets a fresh remote id")
}
