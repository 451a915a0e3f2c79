package domain

import "errors"

// ErrNoActiveDocument is returned when an operation needs a focused document and there is none.
var ErrNoActiveDocument = errors.New("no active document")

// ErrDocumentClosed is returned by edit operations on a document that is no longer open.
var ErrDocumentClosed = errors.New("document closed")

// ErrInvalidRange is returned when an edit range falls outside the document.
var ErrInvalidRange = errors.New("invalid range")

// ErrNoSession is returned when a panel operation is requested without a live session.
var ErrNoSession = errors.New("no panel session")

// ErrSessionClosed is returned when posting to a panel that has been disposed.
var ErrSessionClosed = errors.New("panel session closed")

// ErrTransport wraps every failure talking to the transformation service.
var ErrTransport = errors.New("transformation request failed")

// ErrSuperseded is returned by a write-back job cancelled because a newer one replaced it.
var ErrSuperseded = errors.New("write-back superseded")

// ErrBusy is returned when a panel already has a request in flight.
var ErrBusy = errors.New("request already in flight")

// ErrEmptyPrompt is returned when the user submits a blank prompt.
var ErrEmptyPrompt = errors.New("empty prompt")
