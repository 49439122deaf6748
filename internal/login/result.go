package login

import (
	"encoding/json"
)

// Status is the coarse outcome of a login call.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusDisabled Status = "disabled"
	StatusPending  Status = "pending"
	StatusError    Status = "error"
)

// Method tags which branch of the decision order produced a result.
type Method string

const (
	MethodManualToken Method = "manual_token"
	MethodCachedToken Method = "cached_token"
	MethodOAuth       Method = "oauth"
	MethodOAuthFailed Method = "oauth_failed"
	MethodOAuthError  Method = "oauth_error"
)

// Result is the structured answer of Login. Fields are present only for the
// branch that produced them.
type Result struct {
	Message              string   `json:"message"`
	Status               Status   `json:"status"`
	Error                string   `json:"error,omitempty"`
	ErrorKind            string   `json:"error_kind,omitempty"`
	TokenPreview         string   `json:"token_preview,omitempty"`
	TokenExpiresAt       string   `json:"token_expires_at,omitempty"`
	AuthenticationMethod Method   `json:"authentication_method,omitempty"`
	LoginURL             string   `json:"login_url,omitempty"`
	MarkdownLink         string   `json:"markdown_link,omitempty"`
	Instructions         string   `json:"instructions,omitempty"`
	WhatHappensNext      string   `json:"what_happens_next,omitempty"`
	TokenDuration        string   `json:"token_duration,omitempty"`
	ReadyToUse           string   `json:"ready_to_use,omitempty"`
	SessionID            string   `json:"session_id,omitempty"`
	Troubleshooting      []string `json:"troubleshooting,omitempty"`
	GetHelp              string   `json:"get_help,omitempty"`
}

// IsError reports whether the result describes a failure.
func (r Result) IsError() bool {
	return r.Status == StatusError
}

// JSON renders the result as indented JSON.
func (r Result) JSON() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		// Every field is a string or a string slice.
		return `{"message":"Authentication Error","status":"error","error":"failed to encode result"}`
	}
	return string(data)
}
