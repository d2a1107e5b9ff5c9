package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/racemap/internal/core/domain"
)

func coordinateMap(c domain.Coordinate) map[string]any {
	return map[string]any{"lat": c.Lat, "lon": c.Lon}
}

func viewMap(v domain.RouteView) map[string]any {
	return map[string]any{"center": coordinateMap(v.Center), "zoom": v.Zoom}
}

func routeInfoMap(r domain.RouteInfo) map[string]any {
	return map[string]any{
		"id":         r.ID.Slug(),
		"title":      r.Title,
		"track_file": r.TrackFile,
		"view":       viewMap(r.View),
	}
}

func geometryMap(g *domain.RouteGeometry) map[string]any {
	track := make([]map[string]any, 0, len(g.Track))
	for _, p := range g.Track {
		track = append(track, coordinateMap(p))
	}
	markers := make([]map[string]any, 0, len(g.Markers))
	for _, m := range g.Markers {
		markers = append(markers, map[string]any{"km": m.Km, "position": coordinateMap(m.Position)})
	}
	return map[string]any{
		"route":             g.Route.Slug(),
		"total_distance_km": g.TotalDistanceKm,
		"points":            len(g.Track),
		"track":             track,
		"markers":           markers,
		"view":              viewMap(g.View),
		"degraded":          g.Degraded,
		"reason":            g.Reason,
	}
}

// buildSchema creates the GraphQL schema wired to the route pipeline.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	viewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteView",
		Fields: graphql.Fields{
			"center": &graphql.Field{Type: coordinateType},
			"zoom":   &graphql.Field{Type: graphql.Int},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "KmMarker",
		Fields: graphql.Fields{
			"km":       &graphql.Field{Type: graphql.Int},
			"position": &graphql.Field{Type: coordinateType},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"title":      &graphql.Field{Type: graphql.String},
			"track_file": &graphql.Field{Type: graphql.String},
			"view":       &graphql.Field{Type: viewType},
		},
	})

	geometryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteGeometry",
		Fields: graphql.Fields{
			"route":             &graphql.Field{Type: graphql.String},
			"total_distance_km": &graphql.Field{Type: graphql.Float},
			"points":            &graphql.Field{Type: graphql.Int},
			"track":             &graphql.Field{Type: graphql.NewList(coordinateType)},
			"markers":           &graphql.Field{Type: graphql.NewList(markerType)},
			"view":              &graphql.Field{Type: viewType},
			"degraded":          &graphql.Field{Type: graphql.Boolean},
			"reason":            &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "List the event routes",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					infos := deps.Routes.Routes()
					out := make([]map[string]any, 0, len(infos))
					for _, r := range infos {
						out = append(out, routeInfoMap(r))
					}
					return out, nil
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Get a route by slug or track file name",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["id"].(string)
					route := domain.ParseRouteID(id)
					for _, r := range deps.Routes.Routes() {
						if r.ID == route {
							return routeInfoMap(r), nil
						}
					}
					return nil, nil
				},
			},
			"geometry": &graphql.Field{
				Type:        geometryType,
				Description: "Build the geometry of a route; null for an unknown route",
				Args: graphql.FieldConfigArgument{
					"route": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"zoom":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					slug, _ := p.Args["route"].(string)
					route := domain.ParseRouteID(slug)
					if route == domain.RouteUnknown {
						return nil, nil
					}
					zoom, _ := p.Args["zoom"].(int)
					geom := *deps.Routes.Load(p.Context, route)
					geom.View = geom.View.WithZoom(zoom)
					return geometryMap(&geom), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
