package rest

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/ghodss/yaml"
	"github.com/go-chi/chi/v5"
)

// NewOpenAPI3 instantiates the OpenAPI specification for this service.
func NewOpenAPI3() openapi3.T {
	swagger := openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       "Task Calendar REST API",
			Description: "REST API backing the task-calendar client: dated notes plus a workday classification per date.",
			Version:     "0.1.0",
			License: &openapi3.License{
				Name: "MIT",
				URL:  "https://opensource.org/licenses/MIT",
			},
		},
		Servers: openapi3.Servers{
			&openapi3.Server{
				Description: "Local development",
				URL:         "http://0.0.0.0:8000",
			},
		},
	}

	swagger.Components.Schemas = openapi3.Schemas{
		"Task": openapi3.NewSchemaRef("",
			openapi3.NewObjectSchema().
				WithProperty("id", openapi3.NewInt64Schema()).
				WithProperty("date", openapi3.NewStringSchema()).
				WithProperty("position", openapi3.NewIntegerSchema().WithMin(1)).
				WithProperty("text", openapi3.NewStringSchema())),
	}

	swagger.Components.RequestBodies = openapi3.RequestBodies{
		"CreateTaskRequest": &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithDescription("Request used for creating a task.").
				WithRequired(true).
				WithJSONSchema(openapi3.NewObjectSchema().
					WithProperty("date", openapi3.NewStringSchema()).
					WithProperty("text", openapi3.NewStringSchema())),
		},
		"DeleteTaskRequest": &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithDescription("Request used for deleting one task. The position may be a number or its quoted legacy form.").
				WithRequired(true).
				WithJSONSchema(openapi3.NewObjectSchema().
					WithProperty("date", openapi3.NewStringSchema()).
					WithProperty("position", openapi3.NewIntegerSchema().WithMin(1))),
		},
		"CleanTasksRequest": &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithDescription("Request used for deleting every task of a date.").
				WithRequired(true).
				WithJSONSchema(openapi3.NewObjectSchema().
					WithProperty("date", openapi3.NewStringSchema())),
		},
	}

	swagger.Components.Responses = openapi3.Responses{
		"ErrorResponse": &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("Response when an error occurred.").
				WithContent(openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema().
					WithProperty("error", openapi3.NewStringSchema()))),
		},
		"ListTasksResponse": &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("Response with the classification label and the tasks of a date.").
				WithContent(openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema().
					WithProperty("type", openapi3.NewStringSchema()).
					WithPropertyRef("tasks", &openapi3.SchemaRef{
						Value: openapi3.NewArraySchema().WithItems(swagger.Components.Schemas["Task"].Value),
					}))),
		},
		"SearchTasksResponse": &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("Response with the tasks matching a search.").
				WithContent(openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema().
					WithPropertyRef("tasks", &openapi3.SchemaRef{
						Value: openapi3.NewArraySchema().WithItems(swagger.Components.Schemas["Task"].Value),
					}))),
		},
		"ConfirmationResponse": &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("Plain-text confirmation of a mutation."),
		},
	}

	swagger.Paths = openapi3.Paths{
		"/getList": &openapi3.PathItem{
			Get: &openapi3.Operation{
				OperationID: "ListTasks",
				Parameters: []*openapi3.ParameterRef{
					{
						Value: openapi3.NewQueryParameter("date").
							WithDescription("Date in yyyy-MM-dd form.").
							WithSchema(openapi3.NewStringSchema()),
					},
				},
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{Ref: "#/components/responses/ListTasksResponse"},
				},
			},
		},
		"/create": &openapi3.PathItem{
			Post: &openapi3.Operation{
				OperationID: "CreateTask",
				RequestBody: &openapi3.RequestBodyRef{Ref: "#/components/requestBodies/CreateTaskRequest"},
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{Ref: "#/components/responses/ConfirmationResponse"},
					"400": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
					"500": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
				},
			},
		},
		"/delete": &openapi3.PathItem{
			Post: &openapi3.Operation{
				OperationID: "DeleteTask",
				RequestBody: &openapi3.RequestBodyRef{Ref: "#/components/requestBodies/DeleteTaskRequest"},
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{Ref: "#/components/responses/ConfirmationResponse"},
					"400": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
					"500": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
				},
			},
		},
		"/clean": &openapi3.PathItem{
			Post: &openapi3.Operation{
				OperationID: "CleanTasks",
				RequestBody: &openapi3.RequestBodyRef{Ref: "#/components/requestBodies/CleanTasksRequest"},
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{Ref: "#/components/responses/ConfirmationResponse"},
					"400": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
					"500": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
				},
			},
		},
		"/search": &openapi3.PathItem{
			Get: &openapi3.Operation{
				OperationID: "SearchTasks",
				Parameters: []*openapi3.ParameterRef{
					{
						Value: openapi3.NewQueryParameter("text").
							WithDescription("Text to match against task notes.").
							WithSchema(openapi3.NewStringSchema()),
					},
				},
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{Ref: "#/components/responses/SearchTasksResponse"},
					"500": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
				},
			},
		},
	}

	return swagger
}

// RegisterOpenAPI publishes the API description.
func RegisterOpenAPI(r chi.Router) {
	swagger := NewOpenAPI3()

	r.Get("/openapi3.json", func(w http.ResponseWriter, _ *http.Request) {
		renderResponse(w, &swagger, http.StatusOK)
	})

	r.Get("/openapi3.yaml", func(w http.ResponseWriter, _ *http.Request) {
		data, err := yaml.Marshal(&swagger)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = w.Write(data)
	})
}
