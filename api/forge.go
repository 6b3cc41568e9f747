package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/filer"
	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/id"
	"github.com/xraph/filer/ledger"
	"github.com/xraph/filer/poller"
)

// ForgeAPI wires all Forge-style HTTP handlers together.
type ForgeAPI struct {
	filer *filer.Filer
	log   forge.Logger
}

// NewForgeAPI creates a ForgeAPI on top of an engine.
func NewForgeAPI(f *filer.Filer, log forge.Logger) *ForgeAPI {
	return &ForgeAPI{
		filer: f,
		log:   log,
	}
}

// RegisterRoutes registers all filer API routes into the given Forge router
// with full OpenAPI metadata.
func (a *ForgeAPI) RegisterRoutes(router forge.Router) {
	a.registerCatalogRoutes(router)
	a.registerEventRoutes(router)
	a.registerCredentialRoutes(router)
	a.registerStatsRoutes(router)
}

// ---------------------------------------------------------------------------
// Catalog routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerCatalogRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("catalog"))

	if err := g.GET("/catalog", a.listCatalog,
		forge.WithSummary("List event types"),
		forge.WithDescription("Returns the supported event types with their templates and schemas."),
		forge.WithOperationID("listCatalog"),
		forge.WithRequestSchema(ListCatalogForgeRequest{}),
		forge.WithListResponse(catalog.Definition{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listCatalog route", forge.Error(err))
	}

	if err := g.GET("/catalog/:type", a.getDefinition,
		forge.WithSummary("Get event type"),
		forge.WithDescription("Returns the template and schema of one event type."),
		forge.WithOperationID("getDefinition"),
		forge.WithResponseSchema(http.StatusOK, "Event type definition", catalog.Definition{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getDefinition route", forge.Error(err))
	}

	if err := g.POST("/preview", a.preview,
		forge.WithSummary("Preview payload"),
		forge.WithDescription("Renders and validates a payload without creating an event."),
		forge.WithOperationID("previewPayload"),
		forge.WithRequestSchema(FileEventForgeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Rendered payload", PreviewForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register previewPayload route", forge.Error(err))
	}
}

func (a *ForgeAPI) listCatalog(_ forge.Context, req *ListCatalogForgeRequest) ([]*catalog.Definition, error) {
	return a.filer.Catalog().List(catalog.ListOpts{
		Group:   req.Group,
		Pattern: req.Pattern,
	}), nil
}

func (a *ForgeAPI) getDefinition(_ forge.Context, req *GetDefinitionForgeRequest) (*catalog.Definition, error) {
	def, err := a.filer.Catalog().Lookup(catalog.Type(req.Type))
	if err != nil {
		return nil, forge.NotFound(err.Error())
	}

	return def, nil
}

func (a *ForgeAPI) preview(_ forge.Context, req *FileEventForgeRequest) (*PreviewForgeResponse, error) {
	if req.EventType == "" {
		return nil, forge.BadRequest("event_type is required")
	}

	p, err := a.filer.Preview(catalog.Type(req.EventType), req.Data)
	if err != nil {
		return nil, mapError(err)
	}

	return &PreviewForgeResponse{Payload: p, Size: p.Size()}, nil
}

// ---------------------------------------------------------------------------
// Event routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerEventRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("events"))

	if err := g.POST("/events", a.fileEvent,
		forge.WithSummary("File event"),
		forge.WithDescription("Builds a payload, submits it to the authority and records the outcome."),
		forge.WithOperationID("fileEvent"),
		forge.WithRequestSchema(FileEventForgeRequest{}),
		forge.WithResponseSchema(http.StatusAccepted, "Recorded event", FileEventForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register fileEvent route", forge.Error(err))
	}

	if err := g.GET("/events", a.listEvents,
		forge.WithSummary("List events"),
		forge.WithDescription("Returns ledger records newest first."),
		forge.WithOperationID("listEvents"),
		forge.WithRequestSchema(ListEventsForgeRequest{}),
		forge.WithListResponse(ledger.Event{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listEvents route", forge.Error(err))
	}

	if err := g.GET("/events/:eventId", a.getEvent,
		forge.WithSummary("Get event"),
		forge.WithDescription("Returns the ledger record of one event."),
		forge.WithOperationID("getEvent"),
		forge.WithResponseSchema(http.StatusOK, "Event details", ledger.Event{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getEvent route", forge.Error(err))
	}

	if err := g.GET("/protocols/:protocol", a.queryStatus,
		forge.WithSummary("Query status"),
		forge.WithDescription("Returns the processing status of a protocol, reconciling it into the ledger."),
		forge.WithOperationID("queryStatus"),
		forge.WithResponseSchema(http.StatusOK, "Processing status", poller.Result{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register queryStatus route", forge.Error(err))
	}
}

func (a *ForgeAPI) fileEvent(ctx forge.Context, req *FileEventForgeRequest) (*FileEventForgeResponse, error) {
	if req.EventType == "" {
		return nil, forge.BadRequest("event_type is required")
	}
	if req.Data == nil {
		return nil, forge.BadRequest("data is required")
	}

	evt, err := a.filer.File(ctx.Context(), catalog.Type(req.EventType), req.Data)
	if err != nil && evt == nil {
		return nil, mapError(err)
	}

	resp := &FileEventForgeResponse{Event: evt}
	status := http.StatusAccepted
	if err != nil {
		resp.Error = err.Error()
		status = statusFor(err)
	}

	if err := ctx.JSON(status, resp); err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}

func (a *ForgeAPI) listEvents(ctx forge.Context, req *ListEventsForgeRequest) ([]*ledger.Event, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	opts := ledger.ListOpts{
		Status: ledger.Status(req.Status),
		Type:   catalog.Type(req.EventType),
		Offset: req.Offset,
		Limit:  limit,
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, forge.BadRequest("invalid status")
	}

	events, err := a.filer.Events(ctx.Context(), opts)
	if err != nil {
		return nil, mapError(err)
	}

	return events, nil
}

func (a *ForgeAPI) getEvent(ctx forge.Context, req *GetEventForgeRequest) (*ledger.Event, error) {
	evtID, err := id.ParseFilingEventID(req.EventID)
	if err != nil {
		return nil, forge.BadRequest("invalid event ID")
	}

	evt, getErr := a.filer.Event(ctx.Context(), evtID)
	if getErr != nil {
		return nil, mapError(getErr)
	}

	return evt, nil
}

func (a *ForgeAPI) queryStatus(ctx forge.Context, req *QueryStatusForgeRequest) (*poller.Result, error) {
	res, err := a.filer.QueryStatus(ctx.Context(), req.Protocol)
	if err != nil {
		return nil, mapError(err)
	}

	return res, nil
}

// ---------------------------------------------------------------------------
// Credential routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerCredentialRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("credentials"))

	if err := g.GET("/credentials", a.listCredentials,
		forge.WithSummary("List credentials"),
		forge.WithDescription("Returns the configured certificate and power of attorney. Keys are never returned."),
		forge.WithOperationID("listCredentials"),
		forge.WithListResponse(credential.Credential{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listCredentials route", forge.Error(err))
	}

	if err := g.GET("/credentials/check", a.checkCredentials,
		forge.WithSummary("Check credentials"),
		forge.WithDescription("Reports whether submissions are currently allowed."),
		forge.WithOperationID("checkCredentials"),
		forge.WithResponseSchema(http.StatusOK, "Credential check", CredentialCheckForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register checkCredentials route", forge.Error(err))
	}

	if err := g.PUT("/credentials/:kind", a.configureCredential,
		forge.WithSummary("Configure credential"),
		forge.WithDescription("Stores or replaces the credential of one kind."),
		forge.WithOperationID("configureCredential"),
		forge.WithRequestSchema(ConfigureCredentialForgeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Stored credential", credential.Credential{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register configureCredential route", forge.Error(err))
	}
}

func (a *ForgeAPI) listCredentials(ctx forge.Context, _ *ListCredentialsForgeRequest) ([]*credential.Credential, error) {
	creds, err := a.filer.Store().ListCredentials(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}

	return creds, nil
}

func (a *ForgeAPI) checkCredentials(ctx forge.Context, _ *ListCredentialsForgeRequest) (*CredentialCheckForgeResponse, error) {
	if _, err := a.filer.Credentials().Check(ctx.Context()); err != nil {
		return &CredentialCheckForgeResponse{Reason: err.Error()}, nil
	}

	return &CredentialCheckForgeResponse{Allowed: true}, nil
}

func (a *ForgeAPI) configureCredential(ctx forge.Context, req *ConfigureCredentialForgeRequest) (*credential.Credential, error) {
	kind := credential.Kind(req.Kind)
	if !kind.Valid() {
		return nil, forge.BadRequest("unknown credential kind")
	}

	body := configureCredentialRequest{
		Subject:      req.Subject,
		Issuer:       req.Issuer,
		SerialNumber: req.SerialNumber,
		ValidFrom:    req.ValidFrom,
		ValidTo:      req.ValidTo,
		SigningKey:   req.SigningKey,
		PEM:          req.PEM,
	}

	c, err := body.credential(kind)
	if err != nil {
		return nil, mapError(err)
	}

	if err := a.filer.Credentials().Configure(ctx.Context(), c); err != nil {
		return nil, mapError(err)
	}

	return c, nil
}

// ---------------------------------------------------------------------------
// Stats routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerStatsRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("stats"))

	if err := g.GET("/stats", a.getStats,
		forge.WithSummary("Ledger statistics"),
		forge.WithDescription("Returns event counts per lifecycle status."),
		forge.WithOperationID("getStats"),
		forge.WithResponseSchema(http.StatusOK, "Ledger statistics", statsResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getStats route", forge.Error(err))
	}
}

func (a *ForgeAPI) getStats(ctx forge.Context, _ *StatsForgeRequest) (*statsResponse, error) {
	counts, err := a.filer.Stats(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}

	resp := newStatsResponse(counts, string(a.filer.Mode()),
		string(a.filer.Config().Environment), a.filer.Credentials().IsSubmissionAllowed(ctx.Context()))
	return &resp, nil
}
