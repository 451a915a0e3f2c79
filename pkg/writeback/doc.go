/*
Package writeback replays text into a live document one character at a time.

A write-back first clears the whole document in a single edit, then inserts each rune of
the new text at the current end of the document, awaiting every edit and pausing for a
fixed delay in between. The end offset is recomputed before every insertion, so edits made
concurrently by the user shift where the next rune lands instead of corrupting offsets.

Jobs are cancellable. A Slot holds at most one active job; starting a new one cancels the
previous job with ErrSuperseded and waits for it to stop before the new job touches the
document.
*/
package writeback
