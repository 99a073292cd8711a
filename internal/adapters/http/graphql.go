package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	regionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Region",
		Fields: graphql.Fields{
			"identifier": &graphql.Field{Type: graphql.String},
			"coordinate": &graphql.Field{Type: geoPointType},
			"radius":     &graphql.Field{Type: graphql.Float},
			"note":       &graphql.Field{Type: graphql.String},
			"eventType":  &graphql.Field{Type: graphql.String},
			"created_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RegionSummary",
		Fields: graphql.Fields{
			"all":      &graphql.Field{Type: graphql.Int},
			"on_entry": &graphql.Field{Type: graphql.Int},
			"on_exit":  &graphql.Field{Type: graphql.Int},
		},
	})

	monitorType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MonitorStatus",
		Fields: graphql.Fields{
			"available":     &graphql.Field{Type: graphql.Boolean},
			"authorization": &graphql.Field{Type: graphql.String},
			"max_distance":  &graphql.Field{Type: graphql.Float},
			"max_regions":   &graphql.Field{Type: graphql.Int},
			"monitored":     &graphql.Field{Type: graphql.Int},
		},
	})

	eventType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RegionEvent",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"region_id":  &graphql.Field{Type: graphql.String},
			"device_id":  &graphql.Field{Type: graphql.String},
			"transition": &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"note":       &graphql.Field{Type: graphql.String},
			"message":    &graphql.Field{Type: graphql.String},
			"time":       &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"regions": &graphql.Field{
				Type:        graphql.NewList(regionType),
				Description: "Regions in a view: all, on-entry or on-exit",
				Args: graphql.FieldConfigArgument{
					"filter": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "all"},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := domain.ParseFilter(p.Args["filter"].(string))
					if err != nil {
						return nil, err
					}
					return deps.Regions.List(p.Context, f), nil
				},
			},
			"region": &graphql.Field{
				Type:        regionType,
				Description: "Get a region by identifier",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Regions.Get(p.Context, p.Args["id"].(string))
				},
			},
			"summary": &graphql.Field{
				Type:        summaryType,
				Description: "Size of every view",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Regions.Summary(p.Context), nil
				},
			},
			"monitor": &graphql.Field{
				Type:        monitorType,
				Description: "Region monitor state",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Regions.MonitorStatus(p.Context), nil
				},
			},
			"events": &graphql.Field{
				Type:        graphql.NewList(eventType),
				Description: "Recent entry/exit events for a region",
				Args: graphql.FieldConfigArgument{
					"region_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Alerts == nil {
						return []domain.RegionEvent{}, nil
					}
					return deps.Alerts.History(p.Context, p.Args["region_id"].(string), p.Args["limit"].(int))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"addRegion": &graphql.Field{
				Type:        regionType,
				Description: "Add a region; the radius is clamped to the monitoring limit",
				Args: graphql.FieldConfigArgument{
					"latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"note":      &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"eventType": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Regions.Add(p.Context, usecases.AddRegionInput{
						Latitude:  p.Args["latitude"].(float64),
						Longitude: p.Args["longitude"].(float64),
						Radius:    p.Args["radius"].(float64),
						Note:      p.Args["note"].(string),
						EventType: p.Args["eventType"].(string),
					})
				},
			},
			"removeRegion": &graphql.Field{
				Type:        regionType,
				Description: "Remove a region by identifier",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Regions.Remove(p.Context, p.Args["id"].(string))
				},
			},
			"setAuthorization": &graphql.Field{
				Type:        monitorType,
				Description: "Change the location permission level",
				Args: graphql.FieldConfigArgument{
					"level": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					auth, err := domain.ParseAuthorization(p.Args["level"].(string))
					if err != nil {
						return nil, err
					}
					return deps.Regions.SetAuthorization(p.Context, auth), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
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
