package gsheet

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultRange is read when the caller does not name a range: the first sheet, all columns.
const DefaultRange = "A:Z"

// ErrNoCredentials is returned when no Sheets credentials are configured.
var ErrNoCredentials = errors.New("no Google Sheets credentials configured")

// Fetcher reads the raw cell values of a spreadsheet range.
type Fetcher interface {
	FetchValues(ctx context.Context, spreadsheetID, readRange string) ([][]any, error)
}

// Credentials selects how the Sheets API is authenticated. The first
// non-empty option wins: service account file, user refresh token, API key.
type Credentials struct {
	CredentialsFile string
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	APIKey          string
}

// Configured reports whether any authentication option is set.
func (c Credentials) Configured() bool {
	return c.CredentialsFile != "" || c.RefreshToken != "" || c.APIKey != ""
}

// SheetsFetcher reads values through the Google Sheets v4 API.
type SheetsFetcher struct {
	svc *sheets.Service
}

var _ Fetcher = (*SheetsFetcher)(nil)

// NewSheetsFetcher builds a read-only Sheets client from the given credentials.
func NewSheetsFetcher(ctx context.Context, creds Credentials) (*SheetsFetcher, error) {
	opt, err := clientOption(ctx, creds)
	if err != nil {
		return nil, err
	}
	svc, err := sheets.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &SheetsFetcher{svc: svc}, nil
}

func clientOption(ctx context.Context, creds Credentials) (option.ClientOption, error) {
	switch {
	case creds.CredentialsFile != "":
		data, err := os.ReadFile(creds.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		gc, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parsing credentials file: %w", err)
		}
		return option.WithCredentials(gc), nil
	case creds.RefreshToken != "":
		if creds.ClientID == "" || creds.ClientSecret == "" {
			return nil, errors.New("refresh token auth needs client_id and client_secret")
		}
		cfg := &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsReadonlyScope},
		}
		ts := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
		return option.WithTokenSource(ts), nil
	case creds.APIKey != "":
		return option.WithAPIKey(creds.APIKey), nil
	}
	return nil, ErrNoCredentials
}

// FetchValues returns the formatted cell values of readRange. Formatted values
// keep unit suffixes such as "100kg" that the parser relies on.
func (f *SheetsFetcher) FetchValues(ctx context.Context, spreadsheetID, readRange string) ([][]any, error) {
	if readRange == "" {
		readRange = DefaultRange
	}
	resp, err := f.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("fetching %s!%s: %w", spreadsheetID, readRange, err)
	}
	return resp.Values, nil
}
