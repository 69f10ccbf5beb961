// Package spotdl drives the external spotdl command-line tool.
//
// spotdl is treated as an opaque subprocess: the package builds its command line, runs it in the batch's output
// directory, and classifies the captured output into a [models.Outcome]. Two command grammars exist:
//
//   - [models.Current] (spotdl 4.x): spotdl download <url> --output <dir>/<template>.{output-ext} --format <fmt>
//   - [models.Legacy] (spotdl 3.x): spotdl <url> --output <dir> --output-format <fmt> --path-template <template>.{ext}
//
// A [Detector] picks the grammar once per batch by probing "spotdl --version".
package spotdl
