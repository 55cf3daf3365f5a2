// Package docs provides the OpenAPI documentation for the sourcecheck API.
//
// sourcecheck API
//
//	@title			sourcecheck API
//	@version		1.0
//	@description	Book source validation and chapter content processing.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/sourcecheck
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/sourcecheck/serve.go -o ./swagger --parseDependency --parseInternal
