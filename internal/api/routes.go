package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/api/middleware"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("/ask").
			To(handler.Ask).
			Doc("Answer a question from the university records").
			Metadata(restfulspec.KeyOpenAPITags, []string{"ask"}).
			Reads(AskRequest{}).
			Writes(models.FinalResponse{}).
			Returns(200, "OK", models.FinalResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(429, "Too Many Requests", middleware.ErrorResponse{}).
			Returns(503, "Service Unavailable", models.FinalResponse{}))

	ws.
		Route(ws.POST("/guardrails/input").
			To(handler.CheckInput).
			Doc("Classify a question with the input guardrail").
			Metadata(restfulspec.KeyOpenAPITags, []string{"guardrails"}).
			Reads(InputCheckRequest{}).
			Writes(InputCheckResponse{}).
			Returns(200, "OK", InputCheckResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}))

	container.Add(ws)
}

// RegisterOpenAPI serves the OpenAPI document of every registered web service at
// /api/v1/openapi.json.
func RegisterOpenAPI(container *restful.Container) {
	config := restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/api/v1/openapi.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}

	container.Add(restfulspec.NewOpenAPIService(config))
}

func RegisterMetrics(container *restful.Container, gatherer prometheus.Gatherer) {
	container.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "University Assistant API",
			Description: "Guarded question answering over university records",
			Version:     Version,
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "health", Description: "Health checks"}},
		{TagProps: spec.TagProps{Name: "ask", Description: "Question answering"}},
		{TagProps: spec.TagProps{Name: "guardrails", Description: "Guardrail checks"}},
	}
}
