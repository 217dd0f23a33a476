// Package printing turns label records into printable documents.
//
// The pipeline pieces live here:
//   - TemplateEngine compiles item templates into ItemTemplate values
//   - HelperRegistry holds named helpers callable from templates
//   - DocumentAssembler lays page groups out in the print skeleton
//   - PDFEmitter injects stylesheets and base URL, calls a PDFRenderer
//     and delivers the result to a label.Target
//
// Two PDFRenderer engines are provided: ChromedpRenderer drives headless
// Chrome and honours CSS @page sizes, WkhtmltopdfRenderer shells out to the
// wkhtmltopdf binary.
//
// Example usage:
//
//	renderer, err := NewChromedpRenderer(&ChromedpConfig{NoSandbox: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer renderer.Close()
//
//	emitter := NewPDFEmitter(renderer)
//	pdf, err := emitter.Emit(ctx, html, label.ToMemory(), "assets/", []string{"labels.css"})
package printing
