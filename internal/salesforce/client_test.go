package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rfpsonar/internal/models"
)

const testAccountID = "001V400000dOSjKIAW"

// storeState records what the fake record store received.
type storeState struct {
	createdBodies []OpportunityPayload
	patchedBodies []AccountStatusPayload
	queries       []string
	authHeaders   []string
}

// newStoreServer runs a fake record store: token endpoint, paginated query,
// opportunity create, account patch.
func newStoreServer(t *testing.T, state *storeState) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "fresh-token"})
	})

	mux.HandleFunc("GET /services/data/v65.0/query", func(w http.ResponseWriter, r *http.Request) {
		state.authHeaders = append(state.authHeaders, r.Header.Get("Authorization"))

		soql := r.URL.Query().Get("q")
		state.queries = append(state.queries, soql)

		switch {
		case strings.HasPrefix(soql, "SELECT COUNT()"):
			_ = json.NewEncoder(w).Encode(QueryResponse{TotalSize: 42, Done: true})
		case strings.Contains(soql, "ORDER BY CreatedDate DESC"):
			_ = json.NewEncoder(w).Encode(QueryResponse{
				TotalSize: 2,
				Done:      true,
				Records: []OpportunityRecord{
					{Name: "Newest", SolicitationNumber: "RFB-101", CloseDate: "2025-10-20", DataSource: "Automated Scraper", CreatedDate: "2025-10-02T00:00:00.000+0000"},
					{Name: "Older", SolicitationNumber: "RFB-100", CloseDate: "2025-10-15", DataSource: "Automated Scraper", CreatedDate: "2025-10-01T00:00:00.000+0000"},
				},
			})
		default:
			_ = json.NewEncoder(w).Encode(QueryResponse{
				TotalSize:      3,
				Done:           false,
				NextRecordsURL: "/services/data/v65.0/query/next-2000",
				Records: []OpportunityRecord{
					{SolicitationNumber: "RFB-100"},
					{SolicitationNumber: "RFB-200"},
				},
			})
		}
	})

	mux.HandleFunc("GET /services/data/v65.0/query/next-2000", func(w http.ResponseWriter, r *http.Request) {
		state.authHeaders = append(state.authHeaders, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(QueryResponse{
			TotalSize: 3,
			Done:      true,
			Records: []OpportunityRecord{
				{SolicitationNumber: "RFB-300"},
				{SolicitationNumber: ""},
			},
		})
	})

	mux.HandleFunc("POST /services/data/v65.0/sobjects/Opportunity", func(w http.ResponseWriter, r *http.Request) {
		var payload OpportunityPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode create body: %v", err)
		}
		state.createdBodies = append(state.createdBodies, payload)

		if payload.Name == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode([]APIError{{Message: "Required fields are missing: [Name]", ErrorCode: "REQUIRED_FIELD_MISSING"}})
			return
		}

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(CreateResponse{ID: "006V4000009xyz", Success: true})
	})

	mux.HandleFunc("PATCH /services/data/v65.0/sobjects/Account/"+testAccountID, func(w http.ResponseWriter, r *http.Request) {
		var payload AccountStatusPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode patch body: %v", err)
		}
		state.patchedBodies = append(state.patchedBodies, payload)
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func newTestClient(t *testing.T, state *storeState) *RESTClient {
	t.Helper()
	setOAuthEnv(t)

	server := newStoreServer(t, state)

	return NewRESTClient(storeConfig(server.URL), testLogger())
}

func TestRESTClient_QueryExistingNumbers(t *testing.T) {
	state := &storeState{}
	client := newTestClient(t, state)

	existing, err := client.QueryExistingNumbers(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("QueryExistingNumbers returned unexpected error: %v", err)
	}

	// Both pages walked, empty numbers dropped.
	want := []string{"RFB-100", "RFB-200", "RFB-300"}
	if len(existing) != len(want) {
		t.Fatalf("got %d numbers, want %d", len(existing), len(want))
	}
	for _, key := range want {
		if _, ok := existing[key]; !ok {
			t.Errorf("missing expected number %s", key)
		}
	}

	if len(state.queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(state.queries))
	}
	if !strings.Contains(state.queries[0], "WHERE AccountId = '"+testAccountID+"'") {
		t.Errorf("query = %q, want account filter", state.queries[0])
	}

	for _, h := range state.authHeaders {
		if h != "Bearer fresh-token" {
			t.Errorf("Authorization = %q, want Bearer fresh-token", h)
		}
	}
}

func TestRESTClient_CreateOpportunity(t *testing.T) {
	state := &storeState{}
	client := newTestClient(t, state)

	opp := &models.CanonicalOpportunity{
		SolicitationNumber: "RFB-101",
		Title:              "Road Resurfacing District 4",
		Type:               models.TypeRFB,
		Category:           "Construction",
		CloseDate:          time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC),
		PortalURL:          "https://procurement.example.gov/bid/101",
		Jurisdiction:       "kentucky",
		Description:        "Solicitation Number: RFB-101",
	}

	id, err := client.CreateOpportunity(context.Background(), NewOpportunityPayload(opp, testAccountID))
	if err != nil {
		t.Fatalf("CreateOpportunity returned unexpected error: %v", err)
	}
	if id != "006V4000009xyz" {
		t.Errorf("id = %q", id)
	}

	if len(state.createdBodies) != 1 {
		t.Fatalf("created = %d, want 1", len(state.createdBodies))
	}

	body := state.createdBodies[0]
	if body.AccountID != testAccountID {
		t.Errorf("AccountId = %q", body.AccountID)
	}
	if body.StageName != StageProspecting {
		t.Errorf("StageName = %q", body.StageName)
	}
	if body.CloseDate != "2025-10-14" {
		t.Errorf("CloseDate = %q", body.CloseDate)
	}
	if body.SolicitationNumber == nil || *body.SolicitationNumber != "RFB-101" {
		t.Errorf("Solicitation_Number__c = %v", body.SolicitationNumber)
	}
	if body.ResponseStatus == nil || *body.ResponseStatus != ResponseStatusNew {
		t.Errorf("Response_Status__c = %v", body.ResponseStatus)
	}
	if body.DataSource == nil || *body.DataSource != DataSourceScraper {
		t.Errorf("Data_Source__c = %v", body.DataSource)
	}
	if body.BuyerPhone != nil {
		t.Errorf("Buyer_Phone__c = %v, want omitted", body.BuyerPhone)
	}
}

func TestRESTClient_CreateOpportunity_StoreRejection(t *testing.T) {
	state := &storeState{}
	client := newTestClient(t, state)

	payload := &OpportunityPayload{AccountID: testAccountID, StageName: StageProspecting}

	_, err := client.CreateOpportunity(context.Background(), payload)
	if !errors.Is(err, ErrUnexpectedStatusCode) {
		t.Fatalf("error = %v, want ErrUnexpectedStatusCode", err)
	}
	if !strings.Contains(err.Error(), "REQUIRED_FIELD_MISSING") {
		t.Errorf("error %q does not carry the store message", err)
	}
}

func TestRESTClient_UpdateAccountStatus(t *testing.T) {
	state := &storeState{}
	client := newTestClient(t, state)

	longMessage := strings.Repeat("x", 400)

	err := client.UpdateAccountStatus(context.Background(), testAccountID, models.StatusError, longMessage)
	if err != nil {
		t.Fatalf("UpdateAccountStatus returned unexpected error: %v", err)
	}

	if len(state.patchedBodies) != 1 {
		t.Fatalf("patches = %d, want 1", len(state.patchedBodies))
	}

	body := state.patchedBodies[0]
	if body.LastScrapeStatus == nil || *body.LastScrapeStatus != string(models.StatusError) {
		t.Errorf("Last_Scrape_Status__c = %v", body.LastScrapeStatus)
	}
	if body.LastScrapeError == nil || len(*body.LastScrapeError) != MaxMessageLength {
		t.Errorf("Last_Scrape_Error__c not truncated to %d", MaxMessageLength)
	}
	if body.LastScrapeDate == nil || *body.LastScrapeDate == "" {
		t.Error("Last_Scrape_Date__c missing")
	}
}

func TestRESTClient_UpdateAccountStatus_SuccessClearsError(t *testing.T) {
	state := &storeState{}
	client := newTestClient(t, state)

	err := client.UpdateAccountStatus(context.Background(), testAccountID, models.StatusSuccess, "")
	if err != nil {
		t.Fatalf("UpdateAccountStatus returned unexpected error: %v", err)
	}

	body := state.patchedBodies[0]
	if body.LastScrapeError == nil || *body.LastScrapeError != "" {
		t.Errorf("Last_Scrape_Error__c = %v, want empty string to clear the field", body.LastScrapeError)
	}
}

func TestRESTClient_CountOpportunities(t *testing.T) {
	state := &storeState{}
	client := newTestClient(t, state)

	count, err := client.CountOpportunities(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("CountOpportunities returned unexpected error: %v", err)
	}
	if count != 42 {
		t.Errorf("count = %d, want 42", count)
	}
}

func TestRESTClient_RecentOpportunities(t *testing.T) {
	state := &storeState{}
	client := newTestClient(t, state)

	records, err := client.RecentOpportunities(context.Background(), testAccountID, 3)
	if err != nil {
		t.Fatalf("RecentOpportunities returned unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Name != "Newest" {
		t.Errorf("records[0].Name = %q, want Newest", records[0].Name)
	}
	if records[0].CloseDate != "2025-10-20" {
		t.Errorf("records[0].CloseDate = %q", records[0].CloseDate)
	}

	last := state.queries[len(state.queries)-1]
	if !strings.Contains(last, "LIMIT 3") {
		t.Errorf("query = %q, want LIMIT 3", last)
	}
}

func TestEscapeSOQL(t *testing.T) {
	if got := escapeSOQL(`O'Brien\`); got != `O\'Brien\\` {
		t.Errorf("escapeSOQL = %q", got)
	}
}

func TestNewStubPayload(t *testing.T) {
	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	longURL := "https://procurement.example.gov/" + strings.Repeat("a", 100)

	stub := NewStubPayload(testAccountID, longURL, "listing container not found", now)

	if !strings.HasPrefix(stub.Name, "Manual Review Required - ") {
		t.Errorf("Name = %q", stub.Name)
	}
	if len([]rune(stub.Name)) > MaxNameLength {
		t.Errorf("Name length %d exceeds ceiling", len([]rune(stub.Name)))
	}
	if stub.CloseDate != "2025-10-31" {
		t.Errorf("CloseDate = %q, want 2025-10-31", stub.CloseDate)
	}
	if stub.ResponseStatus == nil || *stub.ResponseStatus != ResponseStatusError {
		t.Errorf("Response_Status__c = %v", stub.ResponseStatus)
	}
	if stub.SolicitationNumber != nil {
		t.Error("stub must not carry a solicitation number")
	}
	if stub.Description == nil || !strings.Contains(*stub.Description, "listing container not found") {
		t.Errorf("Description = %v, want failure cause", stub.Description)
	}
}
