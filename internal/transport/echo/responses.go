package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	statusSuccess = "Success"
	statusFailure = "Failure"
)

type SuccessResponse struct {
	Status       string      `json:"status"`
	ResponseCode int         `json:"response_code"`
	Data         interface{} `json:"data"`
}

type FailureResponse struct {
	Status       string `json:"status"`
	ResponseCode int    `json:"response_code"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message"`
	RequestID    string `json:"request_id,omitempty"`
}

func getFailureResponse(code int, errorCode, message, requestID string) FailureResponse {
	return FailureResponse{
		Status:       statusFailure,
		ResponseCode: code,
		ErrorCode:    errorCode,
		ErrorMessage: message,
		RequestID:    requestID,
	}
}

func getSuccessResponseWithData(data interface{}) SuccessResponse {
	return SuccessResponse{
		Status:       statusSuccess,
		ResponseCode: http.StatusOK,
		Data:         data,
	}
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, getSuccessResponseWithData(data))
}
