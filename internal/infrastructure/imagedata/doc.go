// Package imagedata turns label payloads into embeddable image strings.
//
// Every encoder returns a self-contained data URI of the form
// "data:<mime-type>;base64,<payload>" that templates place directly in an
// <img src="..."> attribute:
//
//	uri, err := imagedata.QRCode("s01", imagedata.QROptions{})
//	uri, err := imagedata.Barcode("4006381333931", imagedata.EAN13, imagedata.BarcodeOptions{})
//	uri, err := imagedata.DataMatrix("s01", imagedata.DataMatrixOptions{CellSize: 3})
//	uri, err := imagedata.FromFile("assets/logo.png")
//
// Encoder failures are reported as *label.EncodingError.
package imagedata
