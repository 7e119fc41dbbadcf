package entity

import (
	"github.com/folio-dev/folio/internal/config"
	"github.com/folio-dev/folio/internal/crud"
)

// Catalog returns the crud configuration for every entity family the site
// serves. mode gates development-only bulk purges; cacheMaxAge is the default
// freshness hint for public reads.
func Catalog(mode config.Mode, cacheMaxAge int) []crud.Options {
	return []crud.Options{
		projects(mode, cacheMaxAge),
		qualifications(mode, cacheMaxAge),
		services(mode, cacheMaxAge),
		gallery(mode, cacheMaxAge),
		guestbook(mode, cacheMaxAge),
		messages(mode),
	}
}

func projects(mode config.Mode, cacheMaxAge int) crud.Options {
	fields := []Field{
		{Name: "title", Kind: Text},
		{Name: "description", Kind: Text},
		{Name: "tags", Kind: TextList},
		{Name: "liveUrl", Kind: Text},
		{Name: "sourceUrl", Kind: Text},
		{Name: "featured", Kind: Flag},
	}
	return crud.Options{
		Label:           "project",
		LabelPlural:     "projects",
		BuildPayload:    Payload(fields),
		Required:        []string{"title", "description"},
		Defaults:        ListDefaults(fields),
		Paginate:        true,
		PublicRead:      true,
		CacheMaxAge:     cacheMaxAge,
		AllowBulkDelete: true,
		Mode:            mode,
	}
}

func qualifications(mode config.Mode, cacheMaxAge int) crud.Options {
	fields := []Field{
		{Name: "program", Kind: Text},
		{Name: "school", Kind: Text},
		{Name: "dates", Kind: Text},
		{Name: "details", Kind: TextList},
	}
	return crud.Options{
		Label:           "qualification",
		LabelPlural:     "qualifications",
		BuildPayload:    Payload(fields),
		Required:        []string{"program", "school"},
		Defaults:        ListDefaults(fields),
		PublicRead:      true,
		CacheMaxAge:     cacheMaxAge,
		AllowBulkDelete: true,
		Mode:            mode,
	}
}

func services(mode config.Mode, cacheMaxAge int) crud.Options {
	fields := []Field{
		{Name: "title", Kind: Text},
		{Name: "description", Kind: Text},
		{Name: "icon", Kind: Text},
	}
	return crud.Options{
		Label:           "service",
		LabelPlural:     "services",
		BuildPayload:    Payload(fields),
		Required:        []string{"title", "description"},
		PublicRead:      true,
		CacheMaxAge:     cacheMaxAge,
		AllowBulkDelete: true,
		Mode:            mode,
	}
}

func gallery(mode config.Mode, cacheMaxAge int) crud.Options {
	fields := []Field{
		{Name: "title", Kind: Text},
		{Name: "caption", Kind: Text},
		// image carries a base64 payload and must not be trimmed or
		// re-encoded.
		{Name: "image", Kind: Opaque},
	}
	return crud.Options{
		Label:           "photo",
		LabelPlural:     "photos",
		Path:            "gallery",
		Collection:      "gallery",
		BuildPayload:    Payload(fields),
		Required:        []string{"title", "image"},
		Paginate:        true,
		PublicRead:      true,
		CacheMaxAge:     cacheMaxAge,
		AllowBulkDelete: true,
		Mode:            mode,
	}
}

func guestbook(mode config.Mode, cacheMaxAge int) crud.Options {
	fields := []Field{
		{Name: "name", Kind: Text},
		{Name: "message", Kind: Text},
	}
	return crud.Options{
		Label:           "entry",
		LabelPlural:     "entries",
		Path:            "guestbook",
		Collection:      "guestbook",
		BuildPayload:    Payload(fields),
		Required:        []string{"name", "message"},
		PublicRead:      true,
		PublicCreate:    true,
		CacheMaxAge:     cacheMaxAge,
		AllowBulkDelete: true,
		Mode:            mode,
	}
}

// messages holds contact-form submissions. Admin eyes only.
func messages(mode config.Mode) crud.Options {
	fields := []Field{
		{Name: "name", Kind: Text},
		{Name: "email", Kind: Text},
		{Name: "subject", Kind: Text},
		{Name: "message", Kind: Text},
	}
	return crud.Options{
		Label:           "message",
		LabelPlural:     "messages",
		Path:            "contact",
		Collection:      "messages",
		BuildPayload:    Payload(fields),
		Required:        []string{"name", "email", "message"},
		PublicCreate:    true,
		AllowBulkDelete: true,
		Mode:            mode,
	}
}
