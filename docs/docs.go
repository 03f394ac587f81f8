// Package docs holds the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.HealthResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/plans": {
            "get": {
                "produces": ["application/json"],
                "tags": ["subscription"],
                "summary": "List paid plans",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/subscription.Plan"}}}
                }
            }
        },
        "/subscription": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["subscription"],
                "summary": "Current subscription",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/subscription.MySubscriptionResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/subscription/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["subscription"],
                "summary": "Cancel subscription",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.MessageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/usage": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["usage"],
                "summary": "Usage snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/entitlement.Snapshot"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/usage/{feature}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["usage"],
                "summary": "Remaining uses for one feature",
                "parameters": [
                    {"type": "string", "description": "portfolio_monitor, stock_analyzer or alphaedge_evaluator", "name": "feature", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/entitlement.FeatureRemainingResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/analysis/stock": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Analyze a stock",
                "parameters": [
                    {"description": "Stock symbol", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/analysis.StockRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/analysis.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/api.UpgradeRequiredResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/analysis/portfolio": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Analyze a portfolio",
                "parameters": [
                    {"description": "Stock symbols", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/analysis.PortfolioRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/analysis.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/api.UpgradeRequiredResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/analysis/evaluator": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Evaluate a position",
                "parameters": [
                    {"description": "Position details", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/analysis.EvaluatorRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/analysis.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/api.UpgradeRequiredResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/chat": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Ask the assistant",
                "parameters": [
                    {"description": "Message", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/analysis.ChatRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/analysis.ChatResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["profile"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/profile.MeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["profile"],
                "summary": "Update profile",
                "parameters": [
                    {"description": "Profile fields", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/profile.UpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/profile.Profile"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/payments/razorpay/order": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Create a Razorpay order",
                "parameters": [
                    {"description": "Plan", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/payment.PlanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/payment.OrderResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/payments/razorpay/verify": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Verify a Razorpay payment and activate the plan",
                "parameters": [
                    {"description": "Checkout callback", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/payment.VerifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/payment.ActivationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/payments/stripe/checkout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Start a Stripe Checkout session",
                "parameters": [
                    {"description": "Plan", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/payment.PlanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/payment.CheckoutResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/webhooks/stripe": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Stripe webhook receiver",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["system"],
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "something went wrong"},
                "field": {"type": "string", "example": "stock"}
            }
        },
        "api.MessageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string", "example": "ok"}}
        },
        "api.HealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string", "example": "ok"}}
        },
        "api.UpgradeRequiredResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "feature": {"type": "string", "example": "stock_analyzer"},
                "upgrade_url": {"type": "string", "example": "/pricing"}
            }
        },
        "analysis.StockRequest": {
            "type": "object",
            "properties": {"stock": {"type": "string", "example": "AAPL"}}
        },
        "analysis.PortfolioRequest": {
            "type": "object",
            "properties": {"stocks": {"type": "array", "items": {"type": "string"}}}
        },
        "analysis.EvaluatorRequest": {
            "type": "object",
            "properties": {
                "currentPrice": {"type": "number"},
                "buyPosition": {"type": "number"},
                "detailedAnalysis": {"type": "string"}
            }
        },
        "analysis.Result": {
            "type": "object",
            "properties": {
                "feature": {"type": "string"},
                "result": {"type": "string"},
                "remaining_uses": {"type": "string", "example": "unlimited"}
            }
        },
        "analysis.ChatRequest": {
            "type": "object",
            "required": ["message"],
            "properties": {"message": {"type": "string"}}
        },
        "analysis.ChatResponse": {
            "type": "object",
            "properties": {"response": {"type": "string"}}
        },
        "entitlement.FeatureStatus": {
            "type": "object",
            "properties": {
                "feature": {"type": "string"},
                "name": {"type": "string"},
                "used": {"type": "integer"},
                "limit": {"type": "integer"},
                "remaining": {"type": "string"}
            }
        },
        "entitlement.Snapshot": {
            "type": "object",
            "properties": {
                "plan": {"type": "string"},
                "unlimited": {"type": "boolean"},
                "features": {"type": "array", "items": {"$ref": "#/definitions/entitlement.FeatureStatus"}}
            }
        },
        "entitlement.FeatureRemainingResponse": {
            "type": "object",
            "properties": {
                "feature": {"type": "string"},
                "limit": {"type": "integer"},
                "remaining": {"type": "string"},
                "can_use": {"type": "boolean"}
            }
        },
        "subscription.Plan": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "price_paise": {"type": "integer"},
                "currency": {"type": "string"},
                "months": {"type": "integer"}
            }
        },
        "subscription.Subscription": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "plan_id": {"type": "string"},
                "status": {"type": "string"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"}
            }
        },
        "subscription.MySubscriptionResponse": {
            "type": "object",
            "properties": {
                "plan": {"type": "string"},
                "subscription": {"$ref": "#/definitions/subscription.Subscription"}
            }
        },
        "profile.Profile": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "full_name": {"type": "string"}
            }
        },
        "profile.UpdateRequest": {
            "type": "object",
            "required": ["full_name"],
            "properties": {"full_name": {"type": "string"}}
        },
        "profile.MeResponse": {
            "type": "object",
            "properties": {
                "profile": {"$ref": "#/definitions/profile.Profile"},
                "subscription": {"$ref": "#/definitions/subscription.Subscription"},
                "usage": {"$ref": "#/definitions/entitlement.Snapshot"}
            }
        },
        "payment.PlanRequest": {
            "type": "object",
            "required": ["plan_id"],
            "properties": {"plan_id": {"type": "string", "example": "monthly"}}
        },
        "payment.OrderResponse": {
            "type": "object",
            "properties": {
                "order_id": {"type": "string"},
                "amount": {"type": "integer"},
                "currency": {"type": "string"},
                "key_id": {"type": "string"}
            }
        },
        "payment.VerifyRequest": {
            "type": "object",
            "required": ["razorpay_payment_id", "razorpay_order_id", "razorpay_signature", "plan_id"],
            "properties": {
                "razorpay_payment_id": {"type": "string"},
                "razorpay_order_id": {"type": "string"},
                "razorpay_signature": {"type": "string"},
                "plan_id": {"type": "string"}
            }
        },
        "payment.ActivationResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "subscription": {"$ref": "#/definitions/subscription.Subscription"}
            }
        },
        "payment.CheckoutResponse": {
            "type": "object",
            "properties": {"url": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "PortIQ API",
	Description:      "Subscription-gated stock analysis backend.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
