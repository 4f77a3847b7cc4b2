// Package volume drives the OpenAFS volume and file tools to inspect,
// release, create and remove volumes.
//
// Every operation is a fixed sequence of tool invocations through
// command.Tools. The first failing step aborts the sequence; nothing is
// retried and nothing is rolled back.
package volume
