// Package authcore implements a credential-verification and step-up
// authentication engine: password policy validation, breach-database
// screening, bcrypt credential hashing, signed email-verification tokens,
// deterministic per-email TOTP second factors, and the session state
// machine that gates access until every required factor has been
// satisfied.
//
// The Engine is constructed through the Builder and owns no storage of its
// own: accounts live behind the UserStore interface, outbound mail behind
// EmailSender, and bot verification behind BotVerifier. Session assertions
// are compact signed claims that are re-validated against the UserStore on
// every privileged read, so enabling two-factor auth or completing email
// verification takes effect on the next request without a fresh login.
package authcore
