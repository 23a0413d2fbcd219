package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// Employee is the employee resource.
type Employee struct {
	ID          int64  `json:"id" example:"7"`
	Name        string `json:"name" example:"Ana Souza"`
	Department  string `json:"department" example:"Finance"`
	Email       string `json:"email" example:"ana@example.com"`
	Contact     string `json:"contact" example:"+55 11 99999-0000"`
	FaceDataDir string `json:"face_data_dir,omitempty" example:"static/captures/7"`
	CreatedAt   string `json:"created_at" example:"2024-03-01T08:00:00Z"`
	UpdatedAt   string `json:"updated_at" example:"2024-03-01T08:00:00Z"`
}

// EmployeeInput is the body of create and update requests.
type EmployeeInput struct {
	Name       string `json:"name" example:"Ana Souza"`
	Department string `json:"department" example:"Finance"`
	Email      string `json:"email" example:"ana@example.com"`
	Contact    string `json:"contact" example:"+55 11 99999-0000"`
}

// CaptureResponse is returned after a successful face capture.
type CaptureResponse struct {
	Message    string `json:"message" example:"Face data captured and embeddings saved"`
	Frames     int    `json:"frames" example:"3"`
	Embeddings int    `json:"embeddings" example:"3"`
	Blinks     int    `json:"blinks" example:"3"`
}

// MarkResponse is returned when attendance was recorded.
type MarkResponse struct {
	Message      string   `json:"message" example:"Attendance marked successfully"`
	Employee     Employee `json:"employee"`
	AttendanceID int64    `json:"attendance_id" example:"31"`
	Timestamp    string   `json:"timestamp" example:"2024-03-01T08:05:00Z"`
	Distance     float64  `json:"distance" example:"0.31"`
}

// AttendanceRecord is one row of the attendance listing.
type AttendanceRecord struct {
	AttendanceID int64  `json:"attendance_id" example:"31"`
	EmployeeID   int64  `json:"employee_id" example:"7"`
	Name         string `json:"name" example:"Ana Souza"`
	Department   string `json:"department" example:"Finance"`
	Timestamp    string `json:"timestamp" example:"2024-03-01T08:05:00Z"`
}

// LiveEvent is one message of the attendance websocket feed.
type LiveEvent struct {
	Type      string           `json:"type" example:"attendance.marked"`
	Data      AttendanceRecord `json:"data"`
	Timestamp string           `json:"timestamp" example:"2024-03-01T08:05:00Z"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version,omitempty" example:"0.1.0"`
}

var (
	errInternal = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	errNotFound = response.New(ErrorResponse{Code: "EMPLOYEE_NOT_FOUND", Message: "Employee not found"}, "404", "Not Found")
	errBadID    = response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "invalid employee id"}, "400", "Bad Request")
	errInvalid  = response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "name is required"}, "422", "Unprocessable Entity")
	errNoVideo  = response.New(ErrorResponse{Code: "NO_VIDEO", Message: "No video"}, "400", "Bad Request")
	errTooLarge = response.New(ErrorResponse{Code: "UPLOAD_TOO_LARGE", Message: "Uploaded video exceeds the size limit"}, "413", "Payload Too Large")
	errLimited  = response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded, please try again later"}, "429", "Too Many Requests")
)

func idParam() *parameter.Parameter {
	return parameter.IntParam("id", parameter.Path, parameter.WithDescription("Employee ID"))
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Ponto Attendance API",
		Version:     "v1.0.0",
		Description: "Face based attendance: enroll employees from a short video and mark attendance by recognising them",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// Employees

		endpoint.New(
			endpoint.POST,
			"/employees",
			endpoint.WithTags("Employees"),
			endpoint.WithSummary("Create an employee"),
			endpoint.WithDescription("Creates an employee from a JSON body with name, department, email and contact. Only name is required."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Employee{}, "201", "Employee created"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				errInvalid,
				errInternal,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/employees",
			endpoint.WithTags("Employees"),
			endpoint.WithSummary("List employees"),
			endpoint.WithDescription("Returns every employee ordered by ID"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]Employee{}, "200", "Employees"),
			}),
			endpoint.WithErrors([]response.Response{errInternal}),
		),

		endpoint.New(
			endpoint.GET,
			"/employees/{id}",
			endpoint.WithTags("Employees"),
			endpoint.WithSummary("Get an employee"),
			endpoint.WithDescription("Returns one employee"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(idParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Employee{}, "200", "Employee"),
			}),
			endpoint.WithErrors([]response.Response{errBadID, errNotFound, errInternal}),
		),

		endpoint.New(
			endpoint.PUT,
			"/employees/{id}",
			endpoint.WithTags("Employees"),
			endpoint.WithSummary("Update an employee"),
			endpoint.WithDescription("Replaces the editable fields of an employee"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(idParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Employee{}, "200", "Employee updated"),
			}),
			endpoint.WithErrors([]response.Response{errBadID, errNotFound, errInvalid, errInternal}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/employees/{id}",
			endpoint.WithTags("Employees"),
			endpoint.WithSummary("Delete an employee"),
			endpoint.WithDescription("Deletes the employee, their attendance, stored embeddings and capture images"),
			endpoint.WithParams(idParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Employee deleted"),
			}),
			endpoint.WithErrors([]response.Response{errBadID, errNotFound, errInternal}),
		),

		endpoint.New(
			endpoint.POST,
			"/employees/{id}/capture",
			endpoint.WithTags("Employees"),
			endpoint.WithSummary("Capture face data"),
			endpoint.WithDescription("Accepts a short WebM clip in the multipart field 'video'. Frames right after each blink are kept and embedded. Replaces any previous capture."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(idParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CaptureResponse{}, "200", "Face data captured"),
			}),
			endpoint.WithErrors([]response.Response{
				errNoVideo,
				response.New(ErrorResponse{Code: "NO_FRAME", Message: "No frame could be decoded from the video"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "NO_BLINK_DETECTED", Message: "No blink detected - face data not captured"}, "400", "Bad Request"),
				errNotFound,
				errTooLarge,
				errLimited,
				errInternal,
			}),
		),

		// Attendance

		endpoint.New(
			endpoint.POST,
			"/attendance/mark",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Mark attendance"),
			endpoint.WithDescription("Recognises the face in the first frame of the clip in multipart field 'video' and records attendance once per UTC day"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MarkResponse{}, "200", "Attendance marked"),
			}),
			endpoint.WithErrors([]response.Response{
				errNoVideo,
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "FACE_NOT_RECOGNIZED", Message: "Invalid Face - Attendance Not Marked"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "ALREADY_MARKED", Message: "Attendance already marked today at 08:05"}, "409", "Conflict"),
				errTooLarge,
				errLimited,
				errInternal,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/attendance",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("List attendance"),
			endpoint.WithDescription("Lists attendance newest first, optionally filtered by UTC date and employee name substring"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("date", parameter.Query, parameter.WithDescription("UTC date, YYYY-MM-DD; other formats are ignored")),
				parameter.StrParam("employee", parameter.Query, parameter.WithDescription("Case insensitive name substring")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]AttendanceRecord{}, "200", "Attendance records"),
			}),
			endpoint.WithErrors([]response.Response{errInternal}),
		),

		endpoint.New(
			endpoint.GET,
			"/attendance/export.csv",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Export attendance as CSV"),
			endpoint.WithDescription("Same filters as the listing. Columns: Name, Department, Date, Time (UTC)."),
			endpoint.WithProduce([]mime.MIME{mime.MIME("text/csv")}),
			endpoint.WithParams(
				parameter.StrParam("date", parameter.Query, parameter.WithDescription("UTC date, YYYY-MM-DD; other formats are ignored")),
				parameter.StrParam("employee", parameter.Query, parameter.WithDescription("Case insensitive name substring")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "200", "attendance_records.csv"),
			}),
			endpoint.WithErrors([]response.Response{errInternal}),
		),
		endpoint.New(
			endpoint.GET,
			"/attendance/live",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Live attendance feed"),
			endpoint.WithDescription("Websocket upgrade. Every recorded attendance is pushed as an attendance.marked event; inbound messages are ignored."),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LiveEvent{}, "101", "Switching Protocols"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "Upgrade Required"}, "426", "Upgrade Required"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
