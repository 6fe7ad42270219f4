// Package core provides the business logic for guest list imports.
//
// This package holds the whole import pipeline with no HTTP dependencies.
// Web handlers and tests drive it through [Service]; the guest backend is
// reached only through the [EmailChecker] and [GuestCreator] interfaces.
//
// # Pipeline
//
// An upload goes through these passes in order:
//
//  1. [ParseFile] reads .csv or .xlsx into headers and string rows
//  2. [AutoMapColumns] guesses which column holds which guest field
//  3. [ApplyMapping] builds one [ImportGuestRow] per data row
//  4. [ValidateRows] checks name, email and language on each row
//  5. [DetectDuplicateEmails] flags repeats inside the file
//  6. [MarkExistingEmails] flags guests the wedding already has
//  7. [Service.Submit] sends the valid rows in one bulk call
//
// Every pass returns new rows, and RowIndex never changes, so errors can
// always be matched back to the line the user sees.
//
// # Wizard
//
// [Service] keeps one [ImportSession] per wizard run. The steps are linear:
//
//	upload -> mapping -> preview -> result
//
// Changing the mapping from the preview step returns to mapping. A failed
// submit leaves the session on preview so it can be retried. Sessions idle
// longer than the TTL are dropped by [Service.StartJanitor].
//
// # Error Handling
//
// File and wizard failures are sentinel errors (see errors.go) wrapped with
// context. [MapError] turns any of them into a [UserMessage] with a support
// code. Row problems are not errors: they are strings on the row itself.
package core
