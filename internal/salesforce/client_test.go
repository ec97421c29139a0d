package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aethra/upfronts/internal/config"
)

// fakeCRM is an httptest server that speaks just enough of the Salesforce
// REST API for the client under test.
type fakeCRM struct {
	server *httptest.Server

	cases       map[string]Case     // by id
	contracts   map[string]Contract // by id
	attachments map[string][]byte   // id -> body
	loginCalls  int
}

func newFakeCRM(t *testing.T) *fakeCRM {
	t.Helper()
	f := &fakeCRM{
		cases:       map[string]Case{},
		contracts:   map[string]Contract{},
		attachments: map[string][]byte{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.loginCalls++
		require.NoError(t, r.ParseForm())
		if r.PostFormValue("grant_type") != "password" || r.PostFormValue("username") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "fake-token",
			"instance_url": f.server.URL,
		})
	})
	mux.HandleFunc("/services/data/"+APIVersion+"/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fake-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.handleQuery(w, r.URL.Query().Get("q"))
	})
	mux.HandleFunc("/services/data/"+APIVersion+"/sobjects/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fake-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/services/data/"+APIVersion+"/sobjects/"), "/")
		objectType, id := parts[0], parts[1]
		switch {
		case objectType == "Case":
			if c, ok := f.cases[id]; ok {
				json.NewEncoder(w).Encode(c)
				return
			}
		case objectType == "Contract":
			if c, ok := f.contracts[id]; ok {
				json.NewEncoder(w).Encode(c)
				return
			}
		case objectType == "Attachment" && len(parts) > 2 && parts[2] == "Body":
			if body, ok := f.attachments[id]; ok {
				w.Header().Set("Content-Type", "application/pdf")
				w.Write(body)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// handleQuery answers the two SOQL shapes the client issues.
func (f *fakeCRM) handleQuery(w http.ResponseWriter, soql string) {
	var records []interface{}
	switch {
	case strings.Contains(soql, "FROM Case"):
		for _, c := range f.cases {
			if strings.Contains(soql, "'"+c.CaseNumber+"'") || strings.Contains(soql, "CreatedDate") {
				records = append(records, c)
			}
		}
	case strings.Contains(soql, "FROM Contract"):
		for id, c := range f.contracts {
			if strings.Contains(soql, "'"+id+"'") {
				records = append(records, c)
			}
		}
	case strings.Contains(soql, "FROM Attachment"):
		// Metadata listing keyed by parent; serve everything.
		for id := range f.attachments {
			records = append(records, Attachment{ID: id, Name: "contract.pdf", ContentType: "application/pdf"})
		}
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"records": records, "done": true})
}

func (f *fakeCRM) client() *Client {
	return NewClient(config.Salesforce{
		Username:      "ops@example.com",
		Password:      "secret",
		SecurityToken: "token",
		ClientID:      "client",
		ClientSecret:  "clientsecret",
		BaseURL:       f.server.URL,
	})
}

func TestFetchCasesJoinsContractsByID(t *testing.T) {
	f := newFakeCRM(t)
	f.cases["500A"] = Case{ID: "500A", CaseNumber: "1111", ContractID: "800B", Description: "first"}
	f.cases["500B"] = Case{ID: "500B", CaseNumber: "2222", ContractID: "800A", Description: "second"}
	f.contracts["800A"] = Contract{ID: "800A", AccountName: "EDA", OrganizerEmail: "eda@example.com", ActivatedDate: "2019-04-04T00:00:00.000+0000"}
	f.contracts["800B"] = Contract{ID: "800B", AccountName: "IDO", OrganizerEmail: "ido@example.com", ActivatedDate: "2019-05-05T00:00:00.000+0000"}

	previews, err := f.client().FetchCasesByNumbers(context.Background(), []string{"1111", "2222"})
	require.NoError(t, err)
	require.Len(t, previews, 2)

	byNumber := map[string]CasePreview{}
	for _, p := range previews {
		byNumber[p.CaseNumber] = p
	}

	// Case 1111 references contract 800B; the pairing must hold even
	// though the contract ids arrive in a different order than the cases.
	assert.Equal(t, "IDO", byNumber["1111"].OrganizerName)
	assert.Equal(t, "2019-05-05", byNumber["1111"].SignedDate)
	assert.Equal(t, "EDA", byNumber["2222"].OrganizerName)
	assert.Equal(t, "eda@example.com", byNumber["2222"].OrganizerEmail)
	assert.Contains(t, byNumber["1111"].LinkToCase, "/500A")
}

func TestFetchCasesEmptyInput(t *testing.T) {
	f := newFakeCRM(t)
	previews, err := f.client().FetchCasesByNumbers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, previews)
	assert.Zero(t, f.loginCalls)
}

func TestGetCaseNotFound(t *testing.T) {
	f := newFakeCRM(t)
	_, err := f.client().GetCase(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionIsReused(t *testing.T) {
	f := newFakeCRM(t)
	f.cases["500A"] = Case{ID: "500A", CaseNumber: "1111", ContractID: "800A"}
	f.contracts["800A"] = Contract{ID: "800A", ActivatedDate: "2019-04-04T00:00:00.000+0000"}

	c := f.client()
	_, err := c.GetCase(context.Background(), "500A")
	require.NoError(t, err)
	_, err = c.GetContract(context.Background(), "800A")
	require.NoError(t, err)
	assert.Equal(t, 1, f.loginCalls)
}

func TestLoginFailureFailsFast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	defer server.Close()

	c := NewClient(config.Salesforce{Username: "x", BaseURL: server.URL})
	_, err := c.GetCase(context.Background(), "500A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")
}

func TestDownloadAttachment(t *testing.T) {
	f := newFakeCRM(t)
	f.attachments["att1"] = []byte("%PDF-1.4 fake")

	body, contentType, err := f.client().DownloadAttachment(context.Background(), "att1")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
	assert.Equal(t, "application/pdf", contentType)
}

func TestSOQLStringEscaping(t *testing.T) {
	assert.Equal(t, `'O\'Brien'`, soqlString("O'Brien"))
	assert.Equal(t, `'1111','2222'`, soqlStringList([]string{"1111", " 2222"}))
}

func TestContractSignedDate(t *testing.T) {
	c := Contract{ActivatedDate: "2019-04-04T13:45:00.000+0000"}
	signed, err := c.SignedDate()
	require.NoError(t, err)
	assert.Equal(t, "2019-04-04", signed.Format("2006-01-02"))

	_, err = Contract{ActivatedDate: "5678"}.SignedDate()
	assert.Error(t, err)
}
