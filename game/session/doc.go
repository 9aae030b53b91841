// Package session keeps parking game sessions in memory.
//
// Manager implements service.SessionManager. Each session owns its own
// engine, built through the EngineFactory handed to Create so that the
// caller can attach a presenter keyed by the final session ID.
//
// Session IDs are 4 hex characters generated from crypto/rand and looked up
// case-insensitively. Sessions can be deleted explicitly or expire through
// CleanupExpiredSessions; hooks registered with OnRemove run after either.
//
//	manager := session.NewManager()
//	sess, err := manager.Create("", level, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess, err = manager.Get(sess.ID)
package session
