// Errorgen generates HTTP error responses for error enums.
//
// Given the name of a defined integer or string type whose constants are the
// variants of an error kind, errorgen writes a Go source file with
//
//	func (e T) StatusCode() int
//	func (e T) ErrorResponse() *svckit.Response
//
// so that T satisfies svckit.ResponseError and renders as the standard JSON
// envelope {"success": false, "message": e.Error(), "data": null}.
//
// Every variant maps to -default-status (500 unless set). A variant can
// override it with a directive in its doc or line comment:
//
//	const (
//		ErrOrderNotFound OrderError = iota // errorgen:status=404
//		ErrStorage
//	)
//
// The type must have an Error or String method describing each variant; when
// only String exists, errorgen also emits Error. Typical use:
//
//	//go:generate go run github.com/fernandezvara/svckit/cmd/errorgen -type=OrderError
//
// Invoking errorgen on a type that is not an enumeration fails the build.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const defaultImportPath = "github.com/fernandezvara/svckit"

var (
	typeNames     = flag.String("type", "", "comma-separated list of error enum type names; must be set")
	output        = flag.String("output", "", "output file name; default srcdir/<type>_httperror.go")
	defaultStatus = flag.Int("default-status", http.StatusInternalServerError, "HTTP status for variants without an errorgen:status directive")
	importPath    = flag.String("pkg", defaultImportPath, "import path of the svckit package")
)

// Usage is a replacement usage function for the flags package.
func Usage() {
	fmt.Fprintf(os.Stderr, "Usage of errorgen:\n")
	fmt.Fprintf(os.Stderr, "\terrorgen [flags] -type T [directory]\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("errorgen: ")
	flag.Usage = Usage
	flag.Parse()

	if *typeNames == "" {
		flag.Usage()
		os.Exit(2)
	}
	types := strings.Split(*typeNames, ",")

	args := flag.Args()
	if len(args) > 1 {
		flag.Usage()
		os.Exit(2)
	}
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	src, err := generate(options{
		dir:           dir,
		types:         types,
		defaultStatus: *defaultStatus,
		importPath:    *importPath,
		args:          os.Args[1:],
	})
	if err != nil {
		log.Fatal(err)
	}

	outputName := *output
	if outputName == "" {
		baseName := "httperror_gen.go"
		if len(types) == 1 {
			baseName = fmt.Sprintf("%s_httperror.go", types[0])
		}
		outputName = filepath.Join(dir, strings.ToLower(baseName))
	}
	if err := os.WriteFile(outputName, src, 0o644); err != nil {
		log.Fatalf("writing output: %s", err)
	}
}
