package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Mess Fee API",
        "description": "Mess fee management backend: students, due dates, prorated payments and reports",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Sign in and session management"},
        {"name": "Students", "description": "Student registration and fee tracking"},
        {"name": "Payments", "description": "Prorated fee settlement"},
        {"name": "Dashboard", "description": "Admin overview"},
        {"name": "Settings", "description": "Mess configuration"},
        {"name": "Reports", "description": "Payment ledger exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"},
                    "429": {"description": "Too many attempts"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "Logged out"}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Change password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}
                ],
                "responses": {
                    "204": {"description": "Password changed"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students with computed fee status",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["active", "fees_due", "inactive"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid date or amount"},
                    "409": {"description": "Roll number already used"}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Deactivate student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deactivated"}
                }
            }
        },
        "/students/{id}/payable": {
            "get": {
                "tags": ["Payments"],
                "summary": "Preview prorated payable amount",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "absentDays", "in": "query", "type": "integer", "description": "Override the stored absent day count"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments": {
            "get": {
                "tags": ["Payments"],
                "summary": "List payments",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "month", "in": "query", "type": "string", "description": "YYYY-MM"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Payments"],
                "summary": "Record payment and advance due date",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordPaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Student inactive"}
                }
            }
        },
        "/payments/summary": {
            "get": {
                "tags": ["Payments"],
                "summary": "Monthly collection summary",
                "parameters": [
                    {"name": "month", "in": "query", "type": "string", "description": "YYYY-MM"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Admin dashboard overview",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/settings": {
            "get": {
                "tags": ["Settings"],
                "summary": "Get mess settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Settings"],
                "summary": "Update mess settings",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/ledger": {
            "post": {
                "tags": ["Reports"],
                "summary": "Generate payment ledger export",
                "parameters": [
                    {"name": "month", "in": "query", "required": true, "type": "string", "description": "YYYY-MM"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download generated report",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "ChangePasswordRequest": {
            "type": "object",
            "properties": {
                "old_password": {"type": "string"},
                "new_password": {"type": "string"}
            },
            "required": ["old_password", "new_password"]
        },
        "CreateStudentRequest": {
            "type": "object",
            "properties": {
                "roll_no": {"type": "string"},
                "full_name": {"type": "string"},
                "phone": {"type": "string"},
                "room": {"type": "string"},
                "monthly_fee": {"type": "string"},
                "registration_date": {"type": "string", "description": "YYYY-MM-DD"}
            },
            "required": ["roll_no", "full_name", "registration_date"]
        },
        "UpdateStudentRequest": {
            "type": "object",
            "properties": {
                "roll_no": {"type": "string"},
                "full_name": {"type": "string"},
                "phone": {"type": "string"},
                "room": {"type": "string"},
                "monthly_fee": {"type": "string"},
                "absent_days": {"type": "integer"}
            },
            "required": ["roll_no", "full_name"]
        },
        "RecordPaymentRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "method": {"type": "string", "enum": ["cash", "bank_transfer", "upi"]},
                "note": {"type": "string"}
            },
            "required": ["student_id", "method"]
        },
        "UpdateSettingsRequest": {
            "type": "object",
            "properties": {
                "mess_name": {"type": "string"},
                "default_monthly_fee": {"type": "string"},
                "reminder_window_days": {"type": "integer"}
            },
            "required": ["mess_name"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
