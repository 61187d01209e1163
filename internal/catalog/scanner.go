package catalog

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/danieljhkim/appmigrate/internal/clock"
	"github.com/danieljhkim/appmigrate/internal/store"
)

// Scanner reads the entity catalog of a site. It never writes.
type Scanner struct {
	client store.Client
	clock  clock.Clock
	logger *zap.Logger
}

// NewScanner creates a Scanner. If logger is nil, a no-op logger is used.
func NewScanner(client store.Client, clk clock.Clock, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		client: client,
		clock:  clk,
		logger: logger.Named("scanner"),
	}
}

// Scan builds the inventory of apps and their DocTypes.
//
// When apps is empty every app with a Module Def is scanned. Otherwise only
// the listed apps are, and an app owning no Module Def is left out of
// Inventory.Groups. DocTypes whose module has no app are always kept and
// reported as orphans. Failing to read one DocType's fields is recorded in
// Inventory.Errors and does not stop the scan; failing to list modules or
// DocTypes does.
func (s *Scanner) Scan(ctx context.Context, site string, apps []string) (*Inventory, error) {
	inv := &Inventory{
		Site:      site,
		ScannedAt: s.clock.Now(),
	}

	moduleApp, err := s.scanModules(ctx, inv, apps)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(apps))
	for _, app := range apps {
		wanted[app] = true
	}

	// Orphans cannot be selected by module, so the filter is applied here.
	doctypes, err := s.client.List(ctx, store.KindDocType)
	if err != nil {
		return nil, fmt.Errorf("list doctypes: %w", err)
	}

	for _, rec := range doctypes {
		app := moduleApp[rec.String("module")]
		if len(apps) > 0 && app != "" && !wanted[app] {
			continue
		}

		entity := Entity{
			Name:      rec.Name(),
			Module:    rec.String("module"),
			Group:     app,
			IsTable:   rec.Bool("istable"),
			IsCustom:  rec.Bool("custom"),
			IsSingle:  rec.Bool("issingle"),
			IsVirtual: rec.Bool("is_virtual"),
		}

		if kind, err := s.loadDetails(ctx, &entity); err != nil {
			s.logger.Warn("skipping unreadable doctype",
				zap.String("doctype", entity.Name),
				zap.String("kind", kind),
				zap.Error(err))
			inv.Errors = append(inv.Errors, ScanError{
				Entity: entity.Name,
				Kind:   kind,
				Error:  err.Error(),
			})
			continue
		}

		inv.Entities = append(inv.Entities, entity)
		if g := inv.Group(entity.Group); g != nil {
			g.Entities = append(g.Entities, entity.Name)
		}
	}

	s.logger.Info("scan complete",
		zap.String("site", site),
		zap.Int("apps", len(inv.Groups)),
		zap.Int("doctypes", len(inv.Entities)),
		zap.Int("errors", len(inv.Errors)))

	return inv, nil
}

// scanModules fills inv.Groups and returns module -> app for every app on
// the site.
func (s *Scanner) scanModules(ctx context.Context, inv *Inventory, apps []string) (map[string]string, error) {
	modules, err := s.client.List(ctx, store.KindModuleDef)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	moduleApp := make(map[string]string, len(modules))
	byApp := make(map[string][]string)
	for _, rec := range modules {
		app := rec.String("app_name")
		if app == "" {
			s.logger.Debug("module without app", zap.String("module", rec.Name()))
			continue
		}
		moduleApp[rec.Name()] = app
		byApp[app] = append(byApp[app], rec.Name())
	}

	order := apps
	if len(order) == 0 {
		for app := range byApp {
			order = append(order, app)
		}
		sort.Strings(order)
	}
	for _, app := range order {
		if len(byApp[app]) == 0 {
			s.logger.Warn("app owns no modules", zap.String("app", app))
			continue
		}
		inv.Groups = append(inv.Groups, Group{
			Name:     app,
			Modules:  sortedUnique(byApp[app]),
			Entities: []string{},
		})
	}

	return moduleApp, nil
}

// loadDetails reads fields, custom fields and property setters of e.
// On failure it returns the kind that could not be read.
func (s *Scanner) loadDetails(ctx context.Context, e *Entity) (string, error) {
	fields, err := s.client.List(ctx, store.KindDocField, store.Eq("parent", e.Name))
	if err != nil {
		return store.KindDocField, err
	}
	for _, f := range fields {
		if f.String("fieldname") == "" {
			continue
		}
		e.Fields = append(e.Fields, Field{
			Name: f.String("fieldname"),
			Type: f.String("fieldtype"),
		})
	}

	customs, err := s.client.List(ctx, store.KindCustomField, store.Eq("dt", e.Name))
	if err != nil {
		return store.KindCustomField, err
	}
	for _, f := range customs {
		e.Fields = append(e.Fields, Field{
			Name:   f.String("fieldname"),
			Type:   f.String("fieldtype"),
			Custom: true,
			ID:     f.Name(),
			Module: f.String("module"),
		})
	}

	setters, err := s.client.List(ctx, store.KindPropertySetter, store.Eq("doc_type", e.Name))
	if err != nil {
		return store.KindPropertySetter, err
	}
	for _, p := range setters {
		e.PropertySetters = append(e.PropertySetters, PropertySetter{
			ID:       p.Name(),
			Field:    p.String("field_name"),
			Property: p.String("property"),
			Module:   p.String("module"),
		})
	}

	return "", nil
}
