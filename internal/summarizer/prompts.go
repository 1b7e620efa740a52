package summarizer

// Instructions is the fixed prompt sent with every period transcript.
const Instructions = `You are a concise chronology condenser.
You receive a chronological excerpt of a group conversation, one message per line
formatted as "[timestamp] role|author: text".

Write 1 to 3 plain sentences that say what happened in this excerpt, in order:
who raised what, what was decided or produced, and anything left open.
Use participant names as they appear. Do not invent details, do not quote code,
and do not add commentary about the conversation itself.

Return JSON: {"summary": "..."}`
