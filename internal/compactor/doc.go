// Package compactor caps a chat history to a token budget.
//
// History is segmented into blocks, each starting at a user turn. Blocks
// are kept whole from newest to oldest while they fit. The first block
// that does not fit is split into units (an assistant message with tool
// calls plus the tool responses answering it, or a single message), and
// units are kept whole from newest to oldest. The first unit that does
// not fit is shrunk message by message, then compaction stops. Older
// blocks are never considered once the budget runs out.
package compactor
