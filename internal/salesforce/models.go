package salesforce

import (
	"fmt"
	"time"

	"rfpsonar/internal/models"
	"rfpsonar/pkg/utils"
)

// Values stamped on every synchronized record.
const (
	StageProspecting    = "Prospecting"
	ResponseStatusNew   = "New - Not Reviewed"
	ResponseStatusError = "Scraper Error - Manual Review Needed"
	DataSourceScraper   = "Automated Scraper"
)

// Field ceilings enforced by the record store. Values are truncated here
// before sending; the store rejects overlong values outright.
const (
	MaxNameLength    = 120
	MaxMessageLength = 255
	stubURLRunes     = 50
)

// OpportunityPayload is the sobject create body for an opportunity.
type OpportunityPayload struct {
	Name               string  `json:"Name"`
	AccountID          string  `json:"AccountId"`
	StageName          string  `json:"StageName"`
	SolicitationNumber *string `json:"Solicitation_Number__c,omitempty"`
	SolicitationType   *string `json:"Solicitation_Type__c,omitempty"`
	RFPCategory        *string `json:"RFP_Category__c,omitempty"`
	CloseDate          string  `json:"CloseDate"`
	Department         *string `json:"Department__c,omitempty"`
	BuyerName          *string `json:"Buyer_Name__c,omitempty"`
	BuyerEmail         *string `json:"Buyer_Email__c,omitempty"`
	BuyerPhone         *string `json:"Buyer_Phone__c,omitempty"`
	ResponseStatus     *string `json:"Response_Status__c,omitempty"`
	PortalURL          *string `json:"Portal_URL__c,omitempty"`
	DataSource         *string `json:"Data_Source__c,omitempty"`
	Description        *string `json:"Description,omitempty"`
}

// AccountStatusPayload is the PATCH body recording a run outcome on the
// jurisdiction's account.
type AccountStatusPayload struct {
	LastScrapeStatus *string `json:"Last_Scrape_Status__c,omitempty"`
	LastScrapeError  *string `json:"Last_Scrape_Error__c,omitempty"`
	LastScrapeDate   *string `json:"Last_Scrape_Date__c,omitempty"`
}

// OpportunityRecord is one row of an opportunity query.
type OpportunityRecord struct {
	Name               string `json:"Name,omitempty"`
	SolicitationNumber string `json:"Solicitation_Number__c,omitempty"`
	CloseDate          string `json:"CloseDate,omitempty"`
	DataSource         string `json:"Data_Source__c,omitempty"`
	CreatedDate        string `json:"CreatedDate,omitempty"`
}

// QueryResponse is one page of a SOQL query result.
type QueryResponse struct {
	TotalSize      int                 `json:"totalSize"`
	Done           bool                `json:"done"`
	NextRecordsURL string              `json:"nextRecordsUrl,omitempty"`
	Records        []OpportunityRecord `json:"records"`
}

// CreateResponse is returned by a successful sobject POST.
type CreateResponse struct {
	ID      string     `json:"id"`
	Success bool       `json:"success"`
	Errors  []APIError `json:"errors,omitempty"`
}

// APIError is one element of a record store error response body.
type APIError struct {
	Message   string   `json:"message"`
	ErrorCode string   `json:"errorCode"`
	Fields    []string `json:"fields,omitempty"`
}

// NewOpportunityPayload maps a canonical record onto the create body,
// applying the store's field ceilings.
func NewOpportunityPayload(opp *models.CanonicalOpportunity, accountID string) *OpportunityPayload {
	str := utils.NewStringHelper()

	return &OpportunityPayload{
		Name:               str.Truncate(opp.Title, MaxNameLength),
		AccountID:          accountID,
		StageName:          StageProspecting,
		SolicitationNumber: strPtr(opp.SolicitationNumber),
		SolicitationType:   strPtr(string(opp.Type)),
		RFPCategory:        strPtr(opp.Category),
		CloseDate:          opp.CloseDate.Format("2006-01-02"),
		Department:         strPtr(opp.Department),
		BuyerName:          strPtr(opp.BuyerName),
		BuyerEmail:         strPtr(opp.BuyerEmail),
		BuyerPhone:         strPtr(opp.BuyerPhone),
		ResponseStatus:     strPtr(ResponseStatusNew),
		PortalURL:          strPtr(opp.PortalURL),
		DataSource:         strPtr(DataSourceScraper),
		Description:        strPtr(opp.Description),
	}
}

// NewStubPayload builds the manual-review placeholder created after a fatal
// adapter failure. It carries no solicitation number: stubs flag a broken
// run, they do not represent a listing.
func NewStubPayload(accountID, portalURL, cause string, now time.Time) *OpportunityPayload {
	str := utils.NewStringHelper()
	name := str.Truncate("Manual Review Required - "+str.Truncate(portalURL, stubURLRunes), MaxNameLength)
	description := fmt.Sprintf("Scraper failed for %s. Error: %s", portalURL, cause)

	return &OpportunityPayload{
		Name:           name,
		AccountID:      accountID,
		StageName:      StageProspecting,
		CloseDate:      now.AddDate(0, 0, 30).Format("2006-01-02"),
		ResponseStatus: strPtr(ResponseStatusError),
		PortalURL:      strPtr(portalURL),
		DataSource:     strPtr(DataSourceScraper),
		Description:    strPtr(description),
	}
}

// NewAccountStatusPayload builds the account PATCH body. The error message
// is truncated to the store's ceiling and always written, even when empty,
// so a success update clears the previous run's error.
func NewAccountStatusPayload(status models.RunStatus, message string, now time.Time) *AccountStatusPayload {
	str := utils.NewStringHelper()
	msg := str.Truncate(message, MaxMessageLength)

	return &AccountStatusPayload{
		LastScrapeStatus: strPtr(string(status)),
		LastScrapeError:  &msg,
		LastScrapeDate:   strPtr(now.UTC().Format(time.RFC3339)),
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
