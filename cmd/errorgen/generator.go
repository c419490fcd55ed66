package main

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/format"
	"go/parser"
	"go/token"
	"net/http"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const generatedPrefix = `// Code generated by "errorgen`

var statusDirective = regexp.MustCompile(`errorgen:status=(\S+)`)

// Underlying types an error enum may be declared with
var enumKinds = map[string]bool{
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"byte": true, "rune": true, "string": true,
}

type options struct {
	dir           string
	types         []string
	defaultStatus int
	importPath    string
	args          []string
}

// Package holds the parsed non-test, non-generated files of one directory
type Package struct {
	name  string
	fset  *token.FileSet
	files []*ast.File
}

type variant struct {
	name   string
	status int
}

type enum struct {
	name      string
	variants  []variant
	hasError  bool
	hasString bool
}

func generate(opts options) ([]byte, error) {
	if opts.defaultStatus < 100 || opts.defaultStatus > 599 {
		return nil, fmt.Errorf("-default-status %d is not a valid HTTP status", opts.defaultStatus)
	}
	if opts.importPath == "" {
		opts.importPath = defaultImportPath
	}

	pkg, err := parsePackage(opts.dir)
	if err != nil {
		return nil, err
	}

	enums := make([]*enum, 0, len(opts.types))
	for _, name := range opts.types {
		name = strings.TrimSpace(name)
		e, err := pkg.findEnum(name, opts.defaultStatus)
		if err != nil {
			return nil, err
		}
		enums = append(enums, e)
	}

	g := &Generator{}
	g.Printf("%s %s\"; DO NOT EDIT.\n", generatedPrefix, strings.Join(opts.args, " "))
	g.Printf("\n")
	g.Printf("package %s\n", pkg.name)
	g.Printf("\n")
	g.Printf("import %q\n", opts.importPath)
	for _, e := range enums {
		g.generate(e, opts.defaultStatus, filepath.Base(opts.importPath))
	}
	return g.format()
}

func parsePackage(dir string) (*Package, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return nil, err
	}

	pkg := &Package{fset: token.NewFileSet()}
	for _, path := range paths {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(pkg.fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, err
		}
		// Our own previous output must not count as hand-written methods
		if isOwnOutput(f) {
			continue
		}
		if pkg.name == "" {
			pkg.name = f.Name.Name
		} else if pkg.name != f.Name.Name {
			return nil, fmt.Errorf("%s: multiple packages %s and %s", dir, pkg.name, f.Name.Name)
		}
		pkg.files = append(pkg.files, f)
	}
	if len(pkg.files) == 0 {
		return nil, fmt.Errorf("no Go files in %s", dir)
	}
	return pkg, nil
}

func isOwnOutput(f *ast.File) bool {
	for _, cg := range f.Comments {
		if cg.Pos() > f.Package {
			break
		}
		for _, c := range cg.List {
			if strings.HasPrefix(c.Text, generatedPrefix) {
				return true
			}
		}
	}
	return false
}

func (p *Package) findEnum(name string, defaultStatus int) (*enum, error) {
	spec := p.typeSpec(name)
	if spec == nil {
		return nil, fmt.Errorf("type %s not found in package %s", name, p.name)
	}
	if err := checkKind(spec); err != nil {
		return nil, err
	}

	e := &enum{name: name}
	if err := p.collectMethods(e); err != nil {
		return nil, err
	}
	if !e.hasError && !e.hasString {
		return nil, fmt.Errorf("type %s has neither an Error nor a String method", name)
	}

	variants, err := p.collectVariants(name, defaultStatus)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("type %s has no constants", name)
	}
	e.variants = variants
	return e, nil
}

func (p *Package) typeSpec(name string) *ast.TypeSpec {
	for _, f := range p.files {
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, s := range gd.Specs {
				if ts := s.(*ast.TypeSpec); ts.Name.Name == name {
					return ts
				}
			}
		}
	}
	return nil
}

func checkKind(spec *ast.TypeSpec) error {
	name := spec.Name.Name
	if spec.Assign.IsValid() {
		return fmt.Errorf("type %s is an alias, not an enumeration", name)
	}
	if spec.TypeParams != nil {
		return fmt.Errorf("type %s is generic, not an enumeration", name)
	}
	switch t := spec.Type.(type) {
	case *ast.Ident:
		if !enumKinds[t.Name] {
			return fmt.Errorf("type %s has underlying type %s; only integer and string enumerations are supported", name, t.Name)
		}
		return nil
	case *ast.StructType:
		return fmt.Errorf("type %s is a struct, not an enumeration", name)
	case *ast.InterfaceType:
		return fmt.Errorf("type %s is an interface, not an enumeration", name)
	default:
		return fmt.Errorf("type %s is not an enumeration", name)
	}
}

func (p *Package) collectMethods(e *enum) error {
	for _, f := range p.files {
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv == nil || len(fd.Recv.List) != 1 {
				continue
			}
			recv, pointer := receiverName(fd.Recv.List[0].Type)
			if recv != e.name {
				continue
			}
			switch fd.Name.Name {
			case "Error", "String":
				if pointer {
					return fmt.Errorf("%s.%s has a pointer receiver; variants are values", e.name, fd.Name.Name)
				}
				if fd.Name.Name == "Error" {
					e.hasError = true
				} else {
					e.hasString = true
				}
			case "StatusCode", "ErrorResponse":
				return fmt.Errorf("type %s already declares %s", e.name, fd.Name.Name)
			}
		}
	}
	return nil
}

func receiverName(expr ast.Expr) (string, bool) {
	pointer := false
	if star, ok := expr.(*ast.StarExpr); ok {
		expr, pointer = star.X, true
	}
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name, pointer
	}
	return "", pointer
}

// collectVariants returns the constants of type name in declaration order.
// Constants whose value is another variant are aliases and skipped.
func (p *Package) collectVariants(name string, defaultStatus int) ([]variant, error) {
	var variants []variant
	seen := map[string]bool{}
	// Known constant values, so a generated switch never carries duplicate cases
	byValue := map[string]string{}

	for _, f := range p.files {
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.CONST {
				continue
			}
			typ := ""
			var values []ast.Expr
			for idx, s := range gd.Specs {
				vs := s.(*ast.ValueSpec)
				if len(vs.Values) > 0 {
					values = vs.Values
				}
				switch {
				case vs.Type != nil:
					typ = ""
					if id, ok := vs.Type.(*ast.Ident); ok {
						typ = id.Name
					}
				case len(vs.Values) > 0:
					typ = conversionType(vs.Values[0])
				}
				// Neither type nor values: implicit repetition keeps typ
				if typ != name {
					continue
				}

				doc := vs.Doc
				if doc == nil && !gd.Lparen.IsValid() {
					doc = gd.Doc
				}
				status, err := directiveStatus(defaultStatus, vs.Comment, doc)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", p.fset.Position(vs.Pos()), err)
				}

				for i, n := range vs.Names {
					if n.Name == "_" {
						continue
					}
					if i < len(vs.Values) && isAlias(vs.Values[i], seen) {
						continue
					}
					if i < len(values) {
						if key, ok := constValue(values[i], idx); ok {
							if prev, dup := byValue[key]; dup {
								return nil, fmt.Errorf("%s: %s has the same value as %s; declare it as %s = %s to alias it",
									p.fset.Position(n.Pos()), n.Name, prev, n.Name, prev)
							}
							byValue[key] = n.Name
						}
					}
					seen[n.Name] = true
					variants = append(variants, variant{name: n.Name, status: status})
				}
			}
		}
	}
	return variants, nil
}

// conversionType returns T for a value written as T(x)
func conversionType(expr ast.Expr) string {
	call, ok := expr.(*ast.CallExpr)
	if !ok || len(call.Args) != 1 {
		return ""
	}
	if id, ok := call.Fun.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

// constValue returns a comparable key for values that are a literal or a
// bare iota, optionally wrapped in a conversion. Other expressions are not
// evaluated.
func constValue(expr ast.Expr, idx int) (string, bool) {
	if call, ok := expr.(*ast.CallExpr); ok && len(call.Args) == 1 {
		expr = call.Args[0]
	}
	switch v := expr.(type) {
	case *ast.BasicLit:
		val := constant.MakeFromLiteral(v.Value, v.Kind, 0)
		if val.Kind() == constant.Unknown {
			return "", false
		}
		return val.ExactString(), true
	case *ast.Ident:
		if v.Name == "iota" {
			return strconv.Itoa(idx), true
		}
	}
	return "", false
}

func isAlias(expr ast.Expr, seen map[string]bool) bool {
	if call, ok := expr.(*ast.CallExpr); ok && len(call.Args) == 1 {
		expr = call.Args[0]
	}
	id, ok := expr.(*ast.Ident)
	return ok && seen[id.Name]
}

// directiveStatus reads errorgen:status=NNN from the first comment group
// carrying one. Raw comment text is scanned because CommentGroup.Text drops
// directive-style lines.
func directiveStatus(defaultStatus int, groups ...*ast.CommentGroup) (int, error) {
	for _, cg := range groups {
		if cg == nil {
			continue
		}
		for _, c := range cg.List {
			m := statusDirective.FindStringSubmatch(c.Text)
			if m == nil {
				continue
			}
			status, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, fmt.Errorf("invalid status %q", m[1])
			}
			if status < 100 || status > 599 {
				return 0, fmt.Errorf("status %d out of range 100-599", status)
			}
			return status, nil
		}
	}
	return defaultStatus, nil
}

// Generator holds the state of the analysis. Primarily used to buffer
// the output for format.Source.
type Generator struct {
	buf bytes.Buffer
}

// Printf writes to the output buffer
func (g *Generator) Printf(format string, args ...any) {
	fmt.Fprintf(&g.buf, format, args...)
}

func (g *Generator) generate(e *enum, defaultStatus int, pkgIdent string) {
	groups := map[int][]string{}
	for _, v := range e.variants {
		if v.status == defaultStatus {
			continue
		}
		groups[v.status] = append(groups[v.status], v.name)
	}
	statuses := make([]int, 0, len(groups))
	for status := range groups {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)

	g.Printf("\n// StatusCode returns the HTTP status code for the %s variant.\n", e.name)
	g.Printf("func (e %s) StatusCode() int {\n", e.name)
	if len(statuses) > 0 {
		g.Printf("\tswitch e {\n")
		for _, status := range statuses {
			g.Printf("\tcase %s:\n", strings.Join(groups[status], ", "))
			g.Printf("\t\treturn %d // %s\n", status, statusText(status))
		}
		g.Printf("\t}\n")
	}
	g.Printf("\treturn %d // %s\n", defaultStatus, statusText(defaultStatus))
	g.Printf("}\n")

	g.Printf("\n// ErrorResponse renders the variant as a JSON error envelope.\n")
	g.Printf("func (e %s) ErrorResponse() *%s.Response {\n", e.name, pkgIdent)
	g.Printf("\treturn %s.ErrorResponse(e)\n", pkgIdent)
	g.Printf("}\n")

	if !e.hasError {
		g.Printf("\nfunc (e %s) Error() string {\n", e.name)
		g.Printf("\treturn e.String()\n")
		g.Printf("}\n")
	}

	g.Printf("\nvar _ %s.ResponseError = %s\n", pkgIdent, e.variants[0].name)
}

func (g *Generator) format() ([]byte, error) {
	src, err := format.Source(g.buf.Bytes())
	if err != nil {
		return nil, errors.Join(errors.New("internal error: invalid Go generated"), err)
	}
	return src, nil
}

func statusText(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "status " + strconv.Itoa(status)
}
