package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// ApplicationPage is the flat view of a tracked application mirrored to the
// Notion database. The database schema: Company (title), Role, Notes
// (rich text), Stage, Type (select), Date Applied (date).
type ApplicationPage struct {
	Company     string
	Role        string
	Stage       string
	Type        string
	DateApplied string
	Notes       string
}

// UpsertApplication creates or updates the page keyed by Company+Role. The
// title property holds the company; the Role property distinguishes multiple
// openings at the same company.
func UpsertApplication(ctx context.Context, client Client, dbID string, app ApplicationPage) error {
	existing, err := findPage(ctx, client, dbID, app.Company, app.Role)
	if err != nil {
		return err
	}

	props := buildProperties(app)
	if existing != "" {
		_, err = client.UpdatePage(ctx, existing, &notionapi.PageUpdateRequest{Properties: props})
		return eris.Wrapf(err, "notion: upsert %s / %s", app.Company, app.Role)
	}
	_, err = client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent:     notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(dbID)},
		Properties: props,
	})
	return eris.Wrapf(err, "notion: upsert %s / %s", app.Company, app.Role)
}

// findPage returns the page ID matching company and role, or "".
func findPage(ctx context.Context, client Client, dbID, company, role string) (string, error) {
	resp, err := client.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.AndCompoundFilter{
			notionapi.PropertyFilter{
				Property: "Company",
				RichText: &notionapi.TextFilterCondition{Equals: company},
			},
			notionapi.PropertyFilter{
				Property: "Role",
				RichText: &notionapi.TextFilterCondition{Equals: role},
			},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return string(resp.Results[0].ID), nil
}

func buildProperties(app ApplicationPage) notionapi.Properties {
	props := notionapi.Properties{
		"Company": notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: app.Company}}},
		},
		"Role": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: app.Role}}},
		},
		"Stage": notionapi.SelectProperty{
			Select: notionapi.Option{Name: app.Stage},
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{Name: app.Type},
		},
	}
	if app.Notes != "" {
		props["Notes"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: app.Notes}}},
		}
	}
	if t, err := time.Parse("2006-01-02", app.DateApplied); err == nil {
		applied := notionapi.Date(t)
		props["Date Applied"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &applied},
		}
	}
	return props
}
