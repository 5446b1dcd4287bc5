package geofence

import (
	"context"

	"golang.org/x/sync/errgroup"

	attmodels "anima/internal/attendance/models"
	"anima/internal/geo"
	"anima/internal/location"
	wfmodels "anima/internal/workforce/models"
	id "anima/pkg/domain"
)

// resolveSite picks the site to evaluate. An explicit site always wins.
// Check-out falls back to the open check-in's site. Check-in uses the only
// geo site, or the nearest one when there are several, or the primary site
// when none requires geolocation. A non-nil state ends the evaluation; a
// returned location was sampled during disambiguation and is reused.
func (e *Engine) resolveSite(ctx context.Context, session *wfmodels.Session, mode Mode, req Request, last *attmodels.LogEntry, policy Policy) (id.SiteID, *location.ValidatedLocation, *State) {
	if !req.SiteID.IsNil() {
		return req.SiteID, nil, nil
	}

	if mode == ModeCheckOut {
		if last != nil && last.Action == attmodels.ActionCheckIn {
			return last.SiteID, nil, nil
		}
		return id.SiteID{}, nil, nil
	}

	var geoSites []wfmodels.Site
	for _, a := range session.Sites {
		if a.Site.RequiresGeolocation() {
			geoSites = append(geoSites, a.Site)
		}
	}
	switch {
	case len(geoSites) > 1:
		return e.nearestSite(ctx, geoSites, mode, req, policy)
	case len(geoSites) == 1:
		return geoSites[0].ID, nil, nil
	}
	if primary, ok := session.PrimarySite(); ok {
		return primary.ID, nil, nil
	}
	return id.SiteID{}, nil, nil
}

// nearestSite samples a location and ranks freshly read candidates by
// distance. It blocks when none is in range or when the nearest in-range
// sites cannot be told apart.
func (e *Engine) nearestSite(ctx context.Context, sites []wfmodels.Site, mode Mode, req Request, policy Policy) (id.SiteID, *location.ValidatedLocation, *State) {
	loc, failed := e.locate(ctx, req, mode, policy)
	if failed != nil {
		return id.SiteID{}, nil, failed
	}
	if !loc.IsValid {
		return id.SiteID{}, nil, &State{
			Status:         StatusBlocked,
			Mode:           mode,
			Message:        msgSpoofing,
			ErrorCode:      string(location.CodeSpoofingDetected),
			AccuracyMeters: f64(loc.AccuracyMeters),
			Location:       loc,
			UpdatedAt:      e.now(),
		}
	}

	candidates := e.refreshCandidates(ctx, sites, loc, policy)
	if len(candidates) == 0 {
		return id.SiteID{}, nil, e.fail(mode, StatusError, msgCandidatesFailed)
	}
	geo.SortByDistance(candidates)

	inRange, _ := geo.Partition(candidates, loc.AccuracyMeters)
	if len(inRange) == 0 {
		nearest := candidates[0]
		return id.SiteID{}, nil, &State{
			Status:                StatusBlocked,
			Mode:                  mode,
			SiteID:                nearest.SiteID,
			SiteName:              nearest.Name,
			DistanceMeters:        f64(nearest.DistanceMeters),
			AccuracyMeters:        f64(loc.AccuracyMeters),
			EffectiveRadiusMeters: f64(nearest.EffectiveRadiusMeters),
			Message:               msgNoCandidateInRange(nearest.Name, nearest.DistanceMeters),
			Location:              loc,
			CandidateSites:        candidates,
			UpdatedAt:             e.now(),
		}
	}

	if group := e.tieRule.NearestGroup(inRange); len(group) > 1 {
		return id.SiteID{}, nil, &State{
			Status:            StatusBlocked,
			Mode:              mode,
			AccuracyMeters:    f64(loc.AccuracyMeters),
			Message:           msgSelectionRequired,
			Location:          loc,
			RequiresSelection: true,
			CandidateSites:    group,
			UpdatedAt:         e.now(),
		}
	}
	return inRange[0].SiteID, loc, nil
}

// refreshCandidates re-reads every site concurrently and waits for all of
// them. A site that fails to load, vanished or lost its coordinates is dropped.
func (e *Engine) refreshCandidates(ctx context.Context, sites []wfmodels.Site, loc *location.ValidatedLocation, policy Policy) []geo.SiteCandidate {
	here := geo.Point{Lat: loc.Latitude, Lon: loc.Longitude}
	results := make([]*geo.SiteCandidate, len(sites))

	var g errgroup.Group
	for i, assigned := range sites {
		g.Go(func() error {
			site, err := e.sites.FindSite(ctx, assigned.ID)
			if err != nil {
				e.logger.WarnContext(ctx, "dropping candidate site: refresh failed",
					"site_id", assigned.ID,
					"error", err,
				)
				return nil
			}
			if !site.HasCoordinates() {
				e.logger.WarnContext(ctx, "dropping candidate site: coordinates missing",
					"site_id", site.ID,
				)
				return nil
			}
			if !e.regionOK(ctx, site) {
				return nil
			}
			results[i] = &geo.SiteCandidate{
				SiteID:                site.ID,
				Name:                  site.Name,
				DistanceMeters:        geo.Distance(here, site.Point()),
				EffectiveRadiusMeters: geo.EffectiveRadius(site.RadiusMeters, policy.RadiusCapMeters),
				RequiresGeolocation:   true,
				Position:              site.Point(),
			}
			return nil
		})
	}
	_ = g.Wait()

	candidates := make([]geo.SiteCandidate, 0, len(sites))
	for _, c := range results {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}
	return candidates
}
