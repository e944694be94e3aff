package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Course Enrollment API",
        "description": "Course offerings, student self-enrollment and admin create-and-enroll.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Enrollment", "description": "Sign-in, sign-out and the enrollment form"},
        {"name": "Courses", "description": "Course offerings with seats available"},
        {"name": "Students", "description": "Balances and enrollment history"},
        {"name": "Progress", "description": "Student progress report and exports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check (database ping)",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Home page",
                "description": "Anonymous visitors are redirected to /enroll.",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "302": {"description": "Redirect", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/logout": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Sign out",
                "responses": {
                    "302": {"description": "Redirect to /enroll", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enroll": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Enrollment page",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollment"],
                "summary": "Submit the enrollment form",
                "description": "Signs in when no one is signed in, creates and enrolls a student for admins, or enrolls the signed-in student.",
                "consumes": ["application/x-www-form-urlencoded", "application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollmentForm"}}
                ],
                "responses": {
                    "303": {"description": "Redirect to /enroll", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid ID", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Too many attempts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List course offerings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/balance/{student_id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Student balance and enrollment history",
                "parameters": [
                    {"name": "student_id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "302": {"description": "Unknown student, redirect to /", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Non-numeric ID", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/student_progress": {
            "get": {
                "tags": ["Progress"],
                "summary": "Student progress report",
                "produces": ["application/json", "text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "EnrollmentForm": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string", "description": "string or number"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "initial_balance": {"type": "string", "description": "string or number"},
                "offering_id": {"type": "string", "description": "string or number"}
            }
        },
        "Flash": {
            "type": "object",
            "properties": {
                "category": {"type": "string", "enum": ["success", "error"]},
                "message": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "flashes": {"type": "array", "items": {"$ref": "#/definitions/Flash"}},
                "redirect": {"type": "string"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
