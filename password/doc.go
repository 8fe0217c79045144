// Package password hashes and checks console account passwords.
//
// Hashes use Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [CheckPolicy] enforces the console password rule: at least 8 characters
// with a letter, a digit and a special character.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other consoleauth package.
//   - Log plaintext passwords.
package password
