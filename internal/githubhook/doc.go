// Package githubhook adapts GitHub webhooks to the admission pipeline: a
// signature validator for the X-Hub-Signature headers, a profile that only
// processes pushes to one branch, and registration of the hook on a repository.
package githubhook
