package sheets

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// NewService builds an authenticated Sheets service from the same installed-app
// OAuth credentials and token used for the mailbox. The token is issued with
// both scopes in one consent flow.
func NewService(ctx context.Context, credentialsFile, tokenFile string) (*sheetsapi.Service, error) {
	secret, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: read credentials %s", credentialsFile)
	}
	oauthCfg, err := google.ConfigFromJSON(secret, sheetsapi.SpreadsheetsScope, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: parse credentials")
	}

	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: read token %s", tokenFile)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, eris.Wrap(err, "sheets: parse token")
	}

	svc, err := sheetsapi.NewService(ctx, option.WithTokenSource(oauthCfg.TokenSource(ctx, &token)))
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create service")
	}
	return svc, nil
}
