package gmail

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

// tokenSource builds an auto-refreshing OAuth token source from an installed-app
// client secret file and a previously saved token file.
func tokenSource(ctx context.Context, credentialsFile, tokenFile string) (oauth2.TokenSource, error) {
	secret, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, eris.Wrapf(err, "gmail: read credentials %s", credentialsFile)
	}
	oauthCfg, err := google.ConfigFromJSON(secret, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, eris.Wrap(err, "gmail: parse credentials")
	}

	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, eris.Wrapf(err, "gmail: read token %s (run the OAuth flow once to create it)", tokenFile)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, eris.Wrap(err, "gmail: parse token")
	}

	return oauthCfg.TokenSource(ctx, &token), nil
}
