// Package gmail assembles multipart messages and sends them through the
// Gmail API or SMTP submission.
//
// A message is built from typed Headers and an optional text or HTML body.
// Files are then packed greedily under a total size budget: packing walks
// the candidate files in order and stops at the first one that does not fit
// the remaining margin, leaving every later file unattempted.
//
// Example usage:
//
//	msg, err := gmail.BuildMessage(gmail.Headers{To: "a@example.com", Subject: "Report"}, body, false)
//	if err != nil {
//	    return err
//	}
//	res, err := gmail.PackAttachments(msg, paths, gmail.DefaultMaxMB)
//	if err != nil {
//	    return err
//	}
//	sent, err := client.Send(ctx, msg)
package gmail
