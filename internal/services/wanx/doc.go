// Package wanx implements the image and video generation backends against a
// DashScope-compatible asynchronous task API.
package wanx
