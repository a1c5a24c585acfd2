package common

// MinEmailLength is the minimum length of the email used as the data-key
// salt. Shorter values are rejected at registration and key derivation.
const MinEmailLength = 8

// MaxVaultNameLength bounds vault names accepted by the server.
const MaxVaultNameLength = 256

// MaxEmailLength bounds account emails.
const MaxEmailLength = 254
